package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordReconnect(t *testing.T) {
	before := testutil.ToFloat64(reconnectsTotal.WithLabelValues("idle"))
	RecordReconnect("idle")
	assert.Equal(t, before+1, testutil.ToFloat64(reconnectsTotal.WithLabelValues("idle")))
}

func TestRecordNotification(t *testing.T) {
	before := testutil.ToFloat64(notificationsTotal.WithLabelValues("discord", "delete", "error"))
	RecordNotification("discord", "delete", false)
	assert.Equal(t, before+1, testutil.ToFloat64(notificationsTotal.WithLabelValues("discord", "delete", "error")))
}

func TestHandlerExposesCounters(t *testing.T) {
	RecordEvent("created", "created", 10*time.Millisecond)
	RecordRegistryCall("lookup", true)
	RecordTransferOp("put", true)
	RecordConnectAttempt(false)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `imgsync_events_total{kind="created",status="created"}`)
	assert.Contains(t, string(body), `imgsync_registry_calls_total{operation="lookup",status="success"}`)
	assert.Contains(t, string(body), "imgsync_transfer_connect_attempts_total")
}
