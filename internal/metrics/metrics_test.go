package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveHold(t *testing.T) {
	before := testutil.ToFloat64(HoldOperations.WithLabelValues("verify", "error"))

	ObserveHold("verify", errors.New("processor down"))
	ObserveHold("verify", nil)

	assert.Equal(t, before+1, testutil.ToFloat64(HoldOperations.WithLabelValues("verify", "error")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(HoldOperations.WithLabelValues("verify", "ok")), 1.0)
}
