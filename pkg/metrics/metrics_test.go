package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(MessagesProcessed.WithLabelValues("success"))
	IncrementMessagesProcessed("success")
	assert.Equal(t, before+1, testutil.ToFloat64(MessagesProcessed.WithLabelValues("success")))

	before = testutil.ToFloat64(Classifications.WithLabelValues("high", "false"))
	IncrementClassification("high", false)
	assert.Equal(t, before+1, testutil.ToFloat64(Classifications.WithLabelValues("high", "false")))

	before = testutil.ToFloat64(RepliesSent.WithLabelValues("skipped"))
	IncrementReplies("skipped")
	assert.Equal(t, before+1, testutil.ToFloat64(RepliesSent.WithLabelValues("skipped")))
}

func TestBreakerGauge(t *testing.T) {
	SetBreakerState(1)
	assert.Equal(t, float64(1), testutil.ToFloat64(BreakerState))
	SetBreakerState(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(BreakerState))
}

func TestHistogramsAcceptObservations(t *testing.T) {
	RecordGenerationLatency("classify", "success", 250*time.Millisecond)
	RecordSendDuration("sent", time.Second)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(GenerationLatency), 1)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(SendDuration), 1)
}
