package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	alertModel "neoalert/internal/model/alert"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAlertQuerier struct {
	alerts map[string]*alertModel.Alert
	err    error
}

func (f *fakeAlertQuerier) QueryByAlertID(_ context.Context, alertID string) (*alertModel.Alert, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.alerts[alertID], nil
}

func newAlertTestEngine(q *fakeAlertQuerier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/api/v1/alerts/:alert_id", NewAlertHandler(q).GetAlert)
	return engine
}

func doGetAlert(t *testing.T, engine *gin.Engine, alertID string) (*httptest.ResponseRecorder, alertModel.APIResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts/"+alertID, nil)
	engine.ServeHTTP(w, req)

	var resp alertModel.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

// TestGetAlert 按告警ID查询详情
func TestGetAlert(t *testing.T) {
	q := &fakeAlertQuerier{alerts: map[string]*alertModel.Alert{
		"ALERT-1": {
			AlertID:  "ALERT-1",
			RuleName: "cpu_high",
			Level:    alertModel.EventLevelWarning,
			Status:   alertModel.AlertStatusPending,
			Events: []*alertModel.Event{
				{EventID: "e1", Item: "cpu_usage", Value: 95},
			},
		},
	}}
	engine := newAlertTestEngine(q)

	w, resp := doGetAlert(t, engine, "ALERT-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ALERT-1", data["alert_id"])
	assert.Equal(t, "cpu_high", data["rule_name"])
	events, ok := data["events"].([]interface{})
	require.True(t, ok)
	assert.Len(t, events, 1)
}

// TestGetAlertNotFound 不存在的告警返回404
func TestGetAlertNotFound(t *testing.T) {
	engine := newAlertTestEngine(&fakeAlertQuerier{})

	w, resp := doGetAlert(t, engine, "ALERT-MISSING")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "failed", resp.Status)
}

// TestGetAlertQueryError 存储出错返回500
func TestGetAlertQueryError(t *testing.T) {
	engine := newAlertTestEngine(&fakeAlertQuerier{err: assert.AnError})

	w, resp := doGetAlert(t, engine, "ALERT-1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "failed", resp.Status)
}
