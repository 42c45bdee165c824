package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, result string) float64 {
	t.Helper()
	var m dto.Metric
	if err := WriteBacks.WithLabelValues(result).Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestObserveWriteBack(t *testing.T) {
	okBefore := counterValue(t, ResultOK)
	errBefore := counterValue(t, ResultError)

	ObserveWriteBack(time.Now(), nil)
	ObserveWriteBack(time.Now(), errors.New("boom"))
	ObserveWriteBack(time.Now(), nil)

	if got := counterValue(t, ResultOK) - okBefore; got != 2 {
		t.Errorf("ok delta = %v, want 2", got)
	}
	if got := counterValue(t, ResultError) - errBefore; got != 1 {
		t.Errorf("error delta = %v, want 1", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	ActiveSessions.Set(3)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "caltrack_active_sessions 3") {
		t.Errorf("expected active sessions gauge in output")
	}
}
