package correlation

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	alertModel "neoalert/internal/model/alert"
)

// 测试基准时间，整点对齐方便窗口断言
var baseTime = time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)

// newTestEvent 构造测试事件，at 为相对基准时间的偏移
func newTestEvent(id string, at time.Duration, item string, value float64) *alertModel.Event {
	return &alertModel.Event{
		EventID:      id,
		ReceivedAt:   baseTime.Add(at),
		Item:         item,
		Value:        value,
		Level:        alertModel.EventLevelWarning,
		ResourceType: "host",
		ResourceID:   "host-1",
		ResourceName: "主机1",
		SourceID:     "source-1",
	}
}

// mustJSON 序列化条件配置
func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal condition config: %v", err)
	}
	return string(raw)
}

// thresholdRule 构造一条阈值条件的滑动窗口规则
func thresholdRule(t *testing.T, name, item, operator string, threshold float64) *alertModel.AlertRule {
	t.Helper()
	return &alertModel.AlertRule{
		Name:          name,
		ConditionType: alertModel.ConditionTypeThreshold,
		ConditionConfig: mustJSON(t, map[string]interface{}{
			"field":     item,
			"operator":  operator,
			"threshold": threshold,
		}),
		Severity:   alertModel.EventLevelSeverity,
		IsActive:   true,
		WindowType: alertModel.WindowTypeSliding,
		WindowSize: "10min",
	}
}

// --- 内存版外部协作者 ---

type fakeEventStore struct {
	events []*alertModel.Event
	err    error
}

func (s *fakeEventStore) QueryRange(_ context.Context, start, end time.Time) ([]*alertModel.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*alertModel.Event
	for _, ev := range s.events {
		if !ev.ReceivedAt.Before(start) && ev.ReceivedAt.Before(end) {
			out = append(out, ev)
		}
	}
	return out, nil
}

type fakeAlertStore struct {
	mu        sync.Mutex
	created   []*alertModel.Alert
	active    map[string]*alertModel.Alert
	createErr error
	queryErr  error
}

func newFakeAlertStore() *fakeAlertStore {
	return &fakeAlertStore{active: make(map[string]*alertModel.Alert)}
}

func (s *fakeAlertStore) BulkCreate(_ context.Context, alerts []*alertModel.Alert) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, alerts...)
	for _, a := range alerts {
		s.active[a.AlertID] = a
	}
	return nil
}

func (s *fakeAlertStore) QueryActivatable(_ context.Context) ([]*alertModel.Alert, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*alertModel.Alert
	for _, a := range s.active {
		if a.IsActivatable() {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeAlertStore) LockAndTransition(_ context.Context, alertID string, expected []alertModel.AlertStatus, target alertModel.AlertStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.active[alertID]
	if !ok {
		return false, nil
	}
	for _, st := range expected {
		if a.Status == st {
			a.Status = target
			return true, nil
		}
	}
	return false, nil
}

type fakeRuleStore struct {
	rules []*alertModel.AlertRule
	err   error
}

func (s *fakeRuleStore) LoadAll(_ context.Context) ([]*alertModel.AlertRule, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rules, nil
}

type fakeAuditLog struct {
	mu      sync.Mutex
	entries []*alertModel.OperatorLog
	err     error
}

func (s *fakeAuditLog) BulkAppend(_ context.Context, entries []*alertModel.OperatorLog) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	return nil
}

type fakeRuleCache struct {
	mu          sync.Mutex
	rules       []*alertModel.AlertRule
	invalidated int
	sets        int
	getErr      error
	setErr      error
	err         error
}

func (c *fakeRuleCache) GetRules(_ context.Context) ([]*alertModel.AlertRule, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rules, nil
}

func (c *fakeRuleCache) SetRules(_ context.Context, rules []*alertModel.AlertRule) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = rules
	c.sets++
	return nil
}

func (c *fakeRuleCache) Invalidate(_ context.Context) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = nil
	c.invalidated++
	return nil
}
