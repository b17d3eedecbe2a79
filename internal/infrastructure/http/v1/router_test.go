package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"granja/internal/core/apperror"
	"granja/internal/domain/params"
	"granja/internal/domain/sow"
	"granja/internal/infrastructure/http/v1/handlers"
	"granja/internal/infrastructure/metrics"
	"granja/internal/infrastructure/storage/memory"
	"granja/pkg/logger"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestRouter(t *testing.T, checks map[string]handlers.Pinger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	sows := sow.NewService(sow.ServiceConfig{
		Repo:  store,
		Clock: func() time.Time { return time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC) },
	})
	svc := params.NewService(params.ServiceConfig{Source: sows})
	if checks == nil {
		checks = map[string]handlers.Pinger{"store": store}
	}
	return NewRouter(RouterConfig{
		Sows:    sows,
		Params:  svc,
		Metrics: metrics.New(),
		Logger:  logger.Nop(),
		Checks:  checks,
		Version: "test",
	})
}

type call struct {
	method  string
	path    string
	body    any
	ifMatch string
}

func do(t *testing.T, r *gin.Engine, c call) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(c.method, c.path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.ifMatch != "" {
		req.Header.Set(handlers.HeaderIfMatch, c.ifMatch)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func createSow(t *testing.T, r *gin.Engine, pigID string) string {
	t.Helper()
	w, body := do(t, r, call{method: http.MethodPost, path: "/api/v1/sows", body: map[string]any{"pigId": pigID, "breed": "Landrace"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return body["id"].(string)
}

func fieldNames(body map[string]any) []string {
	details, _ := body["details"].(map[string]any)
	list, _ := details["fields"].([]any)
	names := make([]string, 0, len(list))
	for _, f := range list {
		if m, ok := f.(map[string]any); ok {
			names = append(names, m["field"].(string))
		}
	}
	return names
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, map[string]handlers.Pinger{"store": stubPinger{}})
	w, body := do(t, r, call{method: http.MethodGet, path: "/health/live"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])

	w, _ = do(t, r, call{method: http.MethodGet, path: "/health/ready"})
	assert.Equal(t, http.StatusOK, w.Code)

	down := newTestRouter(t, map[string]handlers.Pinger{"store": stubPinger{err: errors.New("down")}})
	w, body = do(t, down, call{method: http.MethodGet, path: "/health/ready"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "error", body["status"])
}

func TestSowLifecycle(t *testing.T) {
	r := newTestRouter(t, nil)
	sowID := createSow(t, r, "H-001")

	w, body := do(t, r, call{method: http.MethodGet, path: "/api/v1/sows/" + sowID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "H-001", body["pigId"])
	assert.Equal(t, "activa", body["status"])
	assert.Equal(t, float64(1), body["version"])

	w, body = do(t, r, call{method: http.MethodPost, path: "/api/v1/sows/" + sowID + "/reproductive-records", ifMatch: `"1"`,
		body: map[string]any{"service": map[string]any{"date": "2024-05-01", "type": "ia_convencional"}}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, float64(2), body["version"])
	assert.Equal(t, `"2"`, w.Header().Get("ETag"))
	assert.NotEmpty(t, body["id"])

	w, body = do(t, r, call{method: http.MethodGet, path: "/api/v1/sows/" + sowID + "?asOf=2024-06-01"})
	require.Equal(t, http.StatusOK, w.Code)
	records := body["reproductiveRecords"].([]any)
	require.Len(t, records, 1)
	derived := records[0].(map[string]any)["derived"].(map[string]any)
	assert.Equal(t, "2024-08-23", derived["expectedFarrowingDate"])

	// A second add with the stale version is rejected.
	w, body = do(t, r, call{method: http.MethodPost, path: "/api/v1/sows/" + sowID + "/piglets", ifMatch: "1",
		body: map[string]any{"sex": "hembra"}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeConcurrentModification, body["code"])

	w, _ = do(t, r, call{method: http.MethodPost, path: "/api/v1/sows/" + sowID + "/close",
		body: map[string]any{"status": "descartada", "exitReason": "baja productividad", "version": 2}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body = do(t, r, call{method: http.MethodPost, path: "/api/v1/sows/" + sowID + "/reproductive-records",
		body: map[string]any{"service": map[string]any{"date": "2024-08-01"}}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeTerminalStatus, body["code"])

	w, body = do(t, r, call{method: http.MethodGet, path: "/api/v1/sows/" + sowID})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "descartada", body["status"])

	w, _ = do(t, r, call{method: http.MethodDelete, path: "/api/v1/sows/" + sowID})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, body = do(t, r, call{method: http.MethodGet, path: "/api/v1/sows/" + sowID})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperror.CodeNotFound, body["code"])
}

func TestCreateSow_Conflicts(t *testing.T) {
	r := newTestRouter(t, nil)
	createSow(t, r, "H-002")

	w, body := do(t, r, call{method: http.MethodPost, path: "/api/v1/sows", body: map[string]any{"pigId": "H-002"}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeDuplicate, body["code"])
}

func TestAddCycle_LitterSumRejected(t *testing.T) {
	r := newTestRouter(t, nil)
	sowID := createSow(t, r, "H-003")

	w, body := do(t, r, call{method: http.MethodPost, path: "/api/v1/sows/" + sowID + "/reproductive-records",
		body: map[string]any{
			"service":        map[string]any{"date": "2024-01-01"},
			"pregnancyCheck": map[string]any{"date": "2024-01-29", "result": "positivo"},
			"farrowing":      map[string]any{"date": "2024-04-24"},
			"litter":         map[string]any{"totalBorn": 10, "bornAlive": 9, "stillborn": 3, "mummified": 0},
		}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeValidation, body["code"])
	assert.Contains(t, fieldNames(body), "litter.totalBorn")
}

func TestBadInput(t *testing.T) {
	r := newTestRouter(t, nil)
	sowID := createSow(t, r, "H-004")

	tests := []struct {
		name string
		call call
	}{
		{"malformed id", call{method: http.MethodGet, path: "/api/v1/sows/not-a-uuid"}},
		{"malformed body", call{method: http.MethodPut, path: "/api/v1/sows/" + sowID, body: "nope"}},
		{"missing version", call{method: http.MethodPut, path: "/api/v1/sows/" + sowID, body: map[string]any{"name": "Rosa"}}},
		{"bad if-match", call{method: http.MethodPost, path: "/api/v1/sows/" + sowID + "/piglets", ifMatch: "abc", body: map[string]any{}}},
		{"unknown kind", call{method: http.MethodDelete, path: "/api/v1/sows/" + sowID + "/critical-periods/vaccines/" + sowID}},
		{"bad date", call{method: http.MethodGet, path: "/api/v1/reproductive-parameters?from=01/02/2024"}},
		{"inverted period", call{method: http.MethodGet, path: "/api/v1/reproductive-parameters?from=2024-06-01&to=2024-01-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, r, tt.call)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, apperror.CodeValidation, body["code"])
		})
	}
}

func TestCriticalPeriods(t *testing.T) {
	r := newTestRouter(t, nil)
	sowID := createSow(t, r, "H-005")

	w, body := do(t, r, call{method: http.MethodPost, path: "/api/v1/sows/" + sowID + "/critical-periods/heat-detections",
		body: map[string]any{"date": "2024-07-01", "intensity": "fuerte"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	entryID := body["id"].(string)

	w, body = do(t, r, call{method: http.MethodGet, path: "/api/v1/sows/" + sowID})
	require.Equal(t, http.StatusOK, w.Code)
	periods := body["criticalPeriods"].(map[string]any)
	assert.Len(t, periods["heatDetections"], 1)

	w, _ = do(t, r, call{method: http.MethodDelete, path: "/api/v1/sows/" + sowID + "/critical-periods/heat-detections/" + entryID})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body = do(t, r, call{method: http.MethodDelete, path: "/api/v1/sows/" + sowID + "/critical-periods/heat-detections/" + entryID})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperror.CodeNotFound, body["code"])
}

func TestParameters(t *testing.T) {
	r := newTestRouter(t, nil)
	sowID := createSow(t, r, "H-006")

	w, body := do(t, r, call{method: http.MethodGet, path: "/api/v1/reproductive-parameters"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["individual"], 1)
	farm := body["farm"].(map[string]any)
	assert.NotNil(t, farm)
	assert.Equal(t, "2024-09-01", body["asOf"])

	w, body = do(t, r, call{method: http.MethodGet, path: "/api/v1/sows/" + sowID + "/parameters"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "H-006", body["pigId"])
}

func TestMetricsAndNoRoute(t *testing.T) {
	r := newTestRouter(t, nil)
	do(t, r, call{method: http.MethodGet, path: "/health/live"})

	w, body := do(t, r, call{method: http.MethodGet, path: "/api/v1/nothing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperror.CodeNotFound, body["code"])

	w, _ = do(t, r, call{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `granja_http_requests_total{method="GET",route="/health/live",status="200"} 1`)
}

func TestTraceHeaders(t *testing.T) {
	r := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}
