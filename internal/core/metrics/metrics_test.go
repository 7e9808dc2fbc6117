package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Idempotent(t *testing.T) {
	assert.NotPanics(t, Register)
	assert.NotPanics(t, Register)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["fulfillment_poll_attempts_total"])
}

func TestItemOutcomesTotal_Labels(t *testing.T) {
	before := testutil.ToFloat64(ItemOutcomesTotal.WithLabelValues("exhausted", "poll_exhausted"))
	ItemOutcomesTotal.WithLabelValues("exhausted", "poll_exhausted").Inc()
	after := testutil.ToFloat64(ItemOutcomesTotal.WithLabelValues("exhausted", "poll_exhausted"))

	assert.Equal(t, before+1, after)
}
