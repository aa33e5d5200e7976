package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmartDeliveryABI(t *testing.T) {
	parsed, err := SmartDeliveryABI()
	require.NoError(t, err)

	for _, name := range []string{FnStartDelivery, FnCompleteDelivery, FnClearOldDeliveries, FnGetDelivery} {
		_, ok := parsed.Methods[name]
		assert.True(t, ok, "missing method %s", name)
	}
	for _, name := range []string{EventPaymentReleased, EventPaymentRefunded, EventDeliveryCleared} {
		_, ok := parsed.Events[name]
		assert.True(t, ok, "missing event %s", name)
	}

	// The getDelivery view returns the full delivery tuple.
	assert.Len(t, parsed.Methods[FnGetDelivery].Outputs, 12)
	assert.Len(t, parsed.Methods[FnStartDelivery].Inputs, 9)
}
