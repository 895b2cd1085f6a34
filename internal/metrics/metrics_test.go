package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordEnvelopeDropped(t *testing.T) {
	before := testutil.ToFloat64(envelopesDropped.WithLabelValues(DropInvalidJSON))
	RecordEnvelopeDropped(DropInvalidJSON)
	RecordEnvelopeDropped(DropInvalidJSON)
	after := testutil.ToFloat64(envelopesDropped.WithLabelValues(DropInvalidJSON))
	assert.Equal(t, before+2, after)
}

func TestRecordRunLifecycle(t *testing.T) {
	started := testutil.ToFloat64(runsStarted.WithLabelValues("process"))
	finished := testutil.ToFloat64(runsFinished.WithLabelValues("ERROR"))

	RecordRunStarted("process")
	RecordRunFinished("ERROR")

	assert.Equal(t, started+1, testutil.ToFloat64(runsStarted.WithLabelValues("process")))
	assert.Equal(t, finished+1, testutil.ToFloat64(runsFinished.WithLabelValues("ERROR")))
}
