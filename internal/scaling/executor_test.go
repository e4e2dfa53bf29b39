package scaling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedScaler_ScaleTo(t *testing.T) {
	s := NewSimulatedScaler(SimulatedScalerConfig{})

	result, err := s.ScaleTo(context.Background(), "checkout", 3)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.PreviousInstances)
	assert.Equal(t, 3, result.Instances)
	assert.Equal(t, 3, s.Instances("checkout"))
}

func TestSimulatedScaler_InvalidTarget(t *testing.T) {
	s := NewSimulatedScaler(SimulatedScalerConfig{})

	_, err := s.ScaleTo(context.Background(), "checkout", 0)
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestSimulatedScaler_InitialCapacity(t *testing.T) {
	s := NewSimulatedScaler(SimulatedScalerConfig{
		InitialCapacity: map[string]int{"checkout": 4},
	})

	assert.Equal(t, 4, s.Instances("checkout"))
	assert.Equal(t, 1, s.Instances("unknown"))
}

func TestSimulatedScaler_ProvisioningRespectsContext(t *testing.T) {
	s := NewSimulatedScaler(SimulatedScalerConfig{ProvisionTime: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ScaleTo(ctx, "checkout", 5)
	assert.ErrorIs(t, err, context.Canceled)
	// The aborted scale-up leaves the instance count untouched.
	assert.Equal(t, 1, s.Instances("checkout"))
}

func TestSimulatedScaler_ScaleDownSkipsProvisioning(t *testing.T) {
	s := NewSimulatedScaler(SimulatedScalerConfig{
		ProvisionTime:   time.Hour,
		InitialCapacity: map[string]int{"checkout": 5},
	})

	start := time.Now()
	result, err := s.ScaleTo(context.Background(), "checkout", 2)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Instances)
	assert.Less(t, time.Since(start), time.Second)
}
