package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInitIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}

func TestCountersRecord(t *testing.T) {
	before := testutil.ToFloat64(ClaimOutcomes.WithLabelValues("no_evidence"))
	ClaimOutcomes.WithLabelValues("no_evidence").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ClaimOutcomes.WithLabelValues("no_evidence")))

	ObserveStage("chunk", time.Now().Add(-time.Second))
	assert.Equal(t, 1, testutil.CollectAndCount(StageDuration))
}
