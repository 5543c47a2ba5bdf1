package correlation

import (
	"context"
	"testing"
	"time"

	alertModel "neoalert/internal/model/alert"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, events *fakeEventStore, alerts *fakeAlertStore, rules ...*alertModel.AlertRule) *Service {
	t.Helper()
	ruleStore := &fakeRuleStore{rules: rules}
	manager := NewRuleManager(ruleStore, nil, 10*time.Minute)
	require.NoError(t, manager.Reload(context.Background()))
	return NewService(
		manager,
		NewAlertProcessor(events, alerts),
		NewAutoCloseSweeper(alerts, ruleStore, &fakeAuditLog{}),
		NewSmartScheduler(false),
	)
}

// TestServiceAggregationTick 一轮节拍完成滑动窗口规则的取数、评估与落库
func TestServiceAggregationTick(t *testing.T) {
	events := &fakeEventStore{events: []*alertModel.Event{
		newTestEvent("e1", 5*time.Minute, "cpu_usage", 95),
	}}
	alerts := newFakeAlertStore()
	svc := newTestService(t, events, alerts, thresholdRule(t, "cpu_high", "cpu_usage", ">", 80))

	err := svc.RunAggregationTick(context.Background(), baseTime.Add(6*time.Minute))
	require.NoError(t, err)
	require.Len(t, alerts.created, 1)
	assert.Equal(t, "cpu_high", alerts.created[0].RuleName)
}

// TestServiceAggregationTickNoRules 无可执行规则时空转
func TestServiceAggregationTickNoRules(t *testing.T) {
	alerts := newFakeAlertStore()
	svc := newTestService(t, &fakeEventStore{}, alerts)

	require.NoError(t, svc.RunAggregationTick(context.Background(), baseTime))
	assert.Empty(t, alerts.created)
}

// TestServiceAggregationTickPropagatesError 窗口处理失败传播首个错误
func TestServiceAggregationTickPropagatesError(t *testing.T) {
	events := &fakeEventStore{err: assert.AnError}
	svc := newTestService(t, events, newFakeAlertStore(), thresholdRule(t, "cpu_high", "cpu_usage", ">", 80))

	err := svc.RunAggregationTick(context.Background(), baseTime)
	assert.ErrorIs(t, err, assert.AnError)
}

// TestServiceAutoCloseSweep 到期告警经服务入口自动关闭
func TestServiceAutoCloseSweep(t *testing.T) {
	rule := thresholdRule(t, "cpu_high", "cpu_usage", ">", 80)
	rule.CloseTime = "10min"
	alerts := newFakeAlertStore()
	alerts.active["ALERT-1"] = activatableAlert("ALERT-1", "cpu_high", baseTime)
	svc := newTestService(t, &fakeEventStore{}, alerts, rule)

	require.NoError(t, svc.RunAutoCloseSweep(context.Background(), baseTime.Add(time.Hour)))
	assert.Equal(t, alertModel.AlertStatusAutoClosed, alerts.active["ALERT-1"].Status)
}

// TestServiceAutoCloseSweepError 存储查询失败向调用方传播
func TestServiceAutoCloseSweepError(t *testing.T) {
	alerts := newFakeAlertStore()
	alerts.queryErr = assert.AnError
	svc := newTestService(t, &fakeEventStore{}, alerts, thresholdRule(t, "cpu_high", "cpu_usage", ">", 80))

	err := svc.RunAutoCloseSweep(context.Background(), baseTime)
	assert.ErrorIs(t, err, assert.AnError)
}
