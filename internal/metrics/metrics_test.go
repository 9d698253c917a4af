package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFlush(t *testing.T) {
	beforeFlushes := testutil.ToFloat64(flushes)
	beforeRows := testutil.ToFloat64(rowsWritten)

	RecordFlush(3, 15*time.Millisecond)

	assert.Equal(t, beforeFlushes+1, testutil.ToFloat64(flushes))
	assert.Equal(t, beforeRows+3, testutil.ToFloat64(rowsWritten))
}

func TestRecordDropped(t *testing.T) {
	c := recordsDropped.WithLabelValues(ReasonShutdown)
	before := testutil.ToFloat64(c)

	RecordDropped(ReasonShutdown, 2)
	RecordDropped(ReasonShutdown, 0)

	assert.Equal(t, before+2, testutil.ToFloat64(c))
}

func TestRecordHeartbeat(t *testing.T) {
	ok := heartbeatsSent.WithLabelValues("ok")
	failed := heartbeatsSent.WithLabelValues("error")
	beforeOK, beforeFailed := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	RecordHeartbeat(nil)
	RecordHeartbeat(errors.New("broken pipe"))

	assert.Equal(t, beforeOK+1, testutil.ToFloat64(ok))
	assert.Equal(t, beforeFailed+1, testutil.ToFloat64(failed))
}

func TestGauges(t *testing.T) {
	SetFeedConnected(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(feedConnected))
	SetFeedConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(feedConnected))

	SetPendingRecords(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(batchSize))
}

func TestHandler(t *testing.T) {
	RecordMessage("price")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "tick_ingestor_feed_messages_total"))
}
