package correlation

import (
	"context"
	"sync"
	"testing"
	"time"

	alertModel "neoalert/internal/model/alert"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closableRule(t *testing.T, name, closeTime string) *alertModel.AlertRule {
	t.Helper()
	rule := thresholdRule(t, name, "cpu_usage", ">", 80)
	rule.CloseTime = closeTime
	return rule
}

func activatableAlert(id, ruleName string, lastEvent time.Time) *alertModel.Alert {
	return &alertModel.Alert{
		AlertID:       id,
		RuleName:      ruleName,
		Level:         alertModel.EventLevelWarning,
		Status:        alertModel.AlertStatusPending,
		LastEventTime: lastEvent,
	}
}

func newSweeperFixture(t *testing.T, rules []*alertModel.AlertRule, alerts ...*alertModel.Alert) (*AutoCloseSweeper, *fakeAlertStore, *fakeAuditLog) {
	t.Helper()
	store := newFakeAlertStore()
	for _, a := range alerts {
		store.active[a.AlertID] = a
	}
	audit := &fakeAuditLog{}
	sweeper := NewAutoCloseSweeper(store, &fakeRuleStore{rules: rules}, audit)
	return sweeper, store, audit
}

// TestSweepClosesExpiredAlert close_time=10min 的告警在 T+9 不关闭、T+11 关闭
func TestSweepClosesExpiredAlert(t *testing.T) {
	lastEvent := baseTime
	rules := []*alertModel.AlertRule{closableRule(t, "cpu_high", "10min")}

	t.Run("T+9未到期", func(t *testing.T) {
		sweeper, store, audit := newSweeperFixture(t, rules, activatableAlert("ALERT-1", "cpu_high", lastEvent))

		result, err := sweeper.Sweep(context.Background(), lastEvent.Add(9*time.Minute))
		require.NoError(t, err)
		assert.Zero(t, result.Closed)
		assert.Equal(t, alertModel.AlertStatusPending, store.active["ALERT-1"].Status)
		assert.Empty(t, audit.entries)
	})

	t.Run("T+11到期关闭", func(t *testing.T) {
		sweeper, store, audit := newSweeperFixture(t, rules, activatableAlert("ALERT-1", "cpu_high", lastEvent))

		result, err := sweeper.Sweep(context.Background(), lastEvent.Add(11*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 1, result.Closed)
		assert.Equal(t, alertModel.AlertStatusAutoClosed, store.active["ALERT-1"].Status)
		require.Len(t, audit.entries, 1)
		assert.Equal(t, alertModel.AuditActionAutoClose, audit.entries[0].Action)
		assert.Equal(t, "ALERT-1", audit.entries[0].TargetID)
		assert.Equal(t, alertModel.AuditOperatorSystem, audit.entries[0].Operator)
	})
}

// TestSweepBoundary now 恰为截止时刻时关闭（now >= last_event_time + close_time）
func TestSweepBoundary(t *testing.T) {
	rules := []*alertModel.AlertRule{closableRule(t, "cpu_high", "10min")}
	sweeper, store, _ := newSweeperFixture(t, rules, activatableAlert("ALERT-1", "cpu_high", baseTime))

	result, err := sweeper.Sweep(context.Background(), baseTime.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Closed)
	assert.Equal(t, alertModel.AlertStatusAutoClosed, store.active["ALERT-1"].Status)
}

// TestSweepNeverClosesWithoutCloseTime 未配置或为零的 close_time 永不自动关闭
func TestSweepNeverClosesWithoutCloseTime(t *testing.T) {
	rules := []*alertModel.AlertRule{
		closableRule(t, "no_close", ""),
		closableRule(t, "zero_close", "0min"),
		closableRule(t, "zero_seconds", "0s"),
		closableRule(t, "zero_hours", "0h"),
	}
	sweeper, store, audit := newSweeperFixture(t, rules,
		activatableAlert("ALERT-1", "no_close", baseTime),
		activatableAlert("ALERT-2", "zero_close", baseTime),
		activatableAlert("ALERT-3", "zero_seconds", baseTime),
		activatableAlert("ALERT-4", "zero_hours", baseTime),
	)

	// 远超任何静默期
	result, err := sweeper.Sweep(context.Background(), baseTime.Add(365*24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, result.Closed)
	for _, id := range []string{"ALERT-1", "ALERT-2", "ALERT-3", "ALERT-4"} {
		assert.Equal(t, alertModel.AlertStatusPending, store.active[id].Status)
	}
	assert.Empty(t, audit.entries)
}

// TestSweepSkipsUnparsableCloseTime 非法 close_time 只跳过不致命
func TestSweepSkipsUnparsableCloseTime(t *testing.T) {
	rules := []*alertModel.AlertRule{
		closableRule(t, "bad_close", "soon"),
		closableRule(t, "good_close", "10min"),
	}
	sweeper, store, _ := newSweeperFixture(t, rules,
		activatableAlert("ALERT-1", "bad_close", baseTime),
		activatableAlert("ALERT-2", "good_close", baseTime),
	)

	result, err := sweeper.Sweep(context.Background(), baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Closed)
	assert.Equal(t, alertModel.AlertStatusPending, store.active["ALERT-1"].Status)
	assert.Equal(t, alertModel.AlertStatusAutoClosed, store.active["ALERT-2"].Status)
}

// TestSweepSkipsMissingLastEventTime 缺少末事件时间的告警跳过
func TestSweepSkipsMissingLastEventTime(t *testing.T) {
	rules := []*alertModel.AlertRule{closableRule(t, "cpu_high", "10min")}
	a := activatableAlert("ALERT-1", "cpu_high", time.Time{})
	sweeper, store, _ := newSweeperFixture(t, rules, a)

	result, err := sweeper.Sweep(context.Background(), baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, result.Closed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, alertModel.AlertStatusPending, store.active["ALERT-1"].Status)
}

// TestSweepConcurrentIdempotent 并发扫描同一批告警只发生一次流转与一条审计
func TestSweepConcurrentIdempotent(t *testing.T) {
	rules := []*alertModel.AlertRule{closableRule(t, "cpu_high", "10min")}
	store := newFakeAlertStore()
	store.active["ALERT-1"] = activatableAlert("ALERT-1", "cpu_high", baseTime)
	audit := &fakeAuditLog{}

	s1 := NewAutoCloseSweeper(store, &fakeRuleStore{rules: rules}, audit)
	s2 := NewAutoCloseSweeper(store, &fakeRuleStore{rules: rules}, audit)
	now := baseTime.Add(time.Hour)

	var wg sync.WaitGroup
	results := make([]SweepResult, 2)
	for i, s := range []*AutoCloseSweeper{s1, s2} {
		wg.Add(1)
		go func(i int, s *AutoCloseSweeper) {
			defer wg.Done()
			r, err := s.Sweep(context.Background(), now)
			assert.NoError(t, err)
			results[i] = r
		}(i, s)
	}
	wg.Wait()

	assert.Equal(t, 1, results[0].Closed+results[1].Closed)
	assert.Equal(t, alertModel.AlertStatusAutoClosed, store.active["ALERT-1"].Status)
	assert.Len(t, audit.entries, 1)
}

// TestSweepBatching 超过单批上限的告警分批处理且全部覆盖
func TestSweepBatching(t *testing.T) {
	rules := []*alertModel.AlertRule{closableRule(t, "cpu_high", "10min")}
	store := newFakeAlertStore()
	total := autoCloseBatchSize*2 + 7
	for i := 0; i < total; i++ {
		id := NewAlertID()
		store.active[id] = activatableAlert(id, "cpu_high", baseTime)
	}
	audit := &fakeAuditLog{}
	sweeper := NewAutoCloseSweeper(store, &fakeRuleStore{rules: rules}, audit)

	result, err := sweeper.Sweep(context.Background(), baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, total, result.Closed)
	assert.Len(t, audit.entries, total)
}

// TestSweepAuditFailureNotPropagated 审计写入失败不影响扫描结果
func TestSweepAuditFailureNotPropagated(t *testing.T) {
	rules := []*alertModel.AlertRule{closableRule(t, "cpu_high", "10min")}
	store := newFakeAlertStore()
	store.active["ALERT-1"] = activatableAlert("ALERT-1", "cpu_high", baseTime)
	audit := &fakeAuditLog{err: assert.AnError}
	sweeper := NewAutoCloseSweeper(store, &fakeRuleStore{rules: rules}, audit)

	result, err := sweeper.Sweep(context.Background(), baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Closed)
}
