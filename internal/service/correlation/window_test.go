package correlation

import (
	"errors"
	"testing"
	"time"

	alertModel "neoalert/internal/model/alert"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseDuration 测试窗口大小字符串解析
func TestParseDuration(t *testing.T) {
	tests := []struct {
		spec    string
		want    time.Duration
		wantErr bool
	}{
		{"5min", 5 * time.Minute, false},
		{"1h", time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"30s", 30 * time.Second, false},
		{"300s", 300 * time.Second, false},
		{"5m", 0, true},
		{"", 0, true},
		{"min5", 0, true},
		{"5 min", 0, true},
		{"-5min", 0, true},
		{"1.5h", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseDuration(tt.spec)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidDuration), "期望 ErrInvalidDuration, 实际: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestParseDurationEquivalentUnits 不同单位拼写换算到相同秒数
func TestParseDurationEquivalentUnits(t *testing.T) {
	d1, err := ParseDuration("5min")
	require.NoError(t, err)
	d2, err := ParseDuration("300s")
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	h, err := ParseDuration("1h")
	require.NoError(t, err)
	m, err := ParseDuration("60min")
	require.NoError(t, err)
	assert.Equal(t, h, m)
}

// TestSlidingRange 滑动窗口范围为 [now-size, now)
func TestSlidingRange(t *testing.T) {
	now := baseTime.Add(7 * time.Minute)
	rng := SlidingRange(now, 5*time.Minute)
	assert.Equal(t, now.Add(-5*time.Minute), rng.Start)
	assert.Equal(t, now, rng.End)
}

// TestFixedRange 固定窗口按对齐单位截断后向下取整到窗口边界
func TestFixedRange(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		size      time.Duration
		alignment alertModel.WindowAlignment
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "分钟对齐_5min窗口_10:07",
			now:       time.Date(2025, 11, 3, 10, 7, 42, 0, time.UTC),
			size:      5 * time.Minute,
			alignment: alertModel.AlignmentMinute,
			wantStart: time.Date(2025, 11, 3, 10, 5, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 11, 3, 10, 10, 0, 0, time.UTC),
		},
		{
			name:      "分钟对齐_整边界",
			now:       time.Date(2025, 11, 3, 10, 10, 0, 0, time.UTC),
			size:      5 * time.Minute,
			alignment: alertModel.AlignmentMinute,
			wantStart: time.Date(2025, 11, 3, 10, 10, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 11, 3, 10, 15, 0, 0, time.UTC),
		},
		{
			name:      "小时对齐_2h窗口",
			now:       time.Date(2025, 11, 3, 11, 30, 0, 0, time.UTC),
			size:      2 * time.Hour,
			alignment: alertModel.AlignmentHour,
			wantStart: time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC),
		},
		{
			name:      "天对齐_1d窗口",
			now:       time.Date(2025, 11, 3, 15, 45, 0, 0, time.UTC),
			size:      24 * time.Hour,
			alignment: alertModel.AlignmentDay,
			wantStart: time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng, err := FixedRange(tt.now, tt.size, tt.alignment)
			require.NoError(t, err)
			assert.True(t, rng.Start.Equal(tt.wantStart), "start=%v want=%v", rng.Start, tt.wantStart)
			assert.True(t, rng.End.Equal(tt.wantEnd), "end=%v want=%v", rng.End, tt.wantEnd)
		})
	}
}

// TestFixedRangeUnknownAlignment 未知对齐方式编译期拒绝
func TestFixedRangeUnknownAlignment(t *testing.T) {
	_, err := FixedRange(baseTime, 5*time.Minute, alertModel.WindowAlignment("week"))
	assert.True(t, errors.Is(err, ErrInvalidRuleConfig))
}

// TestSessionRanges 同指纹事件按超时间隔切分会话
// t=0,2,4,20 超时 5min 应得到 [0,4] 与 [20,20] 两个会话
func TestSessionRanges(t *testing.T) {
	events := []*alertModel.Event{
		newTestEvent("e1", 0, "cpu_usage", 90),
		newTestEvent("e2", 2*time.Minute, "cpu_usage", 91),
		newTestEvent("e3", 4*time.Minute, "cpu_usage", 92),
		newTestEvent("e4", 20*time.Minute, "cpu_usage", 93),
	}
	cfg := WindowConfig{
		Kind:           alertModel.WindowTypeSession,
		SessionTimeout: 5 * time.Minute,
	}

	ranges := SessionRanges(events, cfg)
	require.Len(t, ranges, 2)

	fp := events[0].Fingerprint()
	first, ok := ranges[fp+"_0"]
	require.True(t, ok, "缺少首个会话: %v", ranges)
	assert.True(t, first.Start.Equal(baseTime))
	assert.True(t, first.End.Equal(baseTime.Add(4*time.Minute)))

	second, ok := ranges[fp+"_1"]
	require.True(t, ok, "缺少第二个会话: %v", ranges)
	assert.True(t, second.Start.Equal(baseTime.Add(20*time.Minute)))
	assert.True(t, second.End.Equal(baseTime.Add(20*time.Minute)))
}

// TestSessionBatchesGroupingFields 配置分组字段时按字段值分组
func TestSessionBatchesGroupingFields(t *testing.T) {
	e1 := newTestEvent("e1", 0, "cpu_usage", 90)
	e2 := newTestEvent("e2", time.Minute, "cpu_usage", 91)
	e2.ResourceID = "host-2"

	cfg := WindowConfig{
		Kind:           alertModel.WindowTypeSession,
		SessionTimeout: 5 * time.Minute,
		SessionKeys:    []string{"resource_id"},
	}

	batches := SessionBatches([]*alertModel.Event{e1, e2}, cfg)
	require.Len(t, batches, 2)
	assert.Len(t, batches["host-1_0"], 1)
	assert.Len(t, batches["host-2_0"], 1)
}

// TestWindowConfigFromRule 非法窗口大小返回 ErrInvalidDuration
func TestWindowConfigFromRule(t *testing.T) {
	rule := thresholdRule(t, "r1", "cpu_usage", ">", 80)
	cfg, err := WindowConfigFromRule(rule)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.Size)

	rule.WindowSize = "ten minutes"
	_, err = WindowConfigFromRule(rule)
	assert.True(t, errors.Is(err, ErrInvalidDuration))
}
