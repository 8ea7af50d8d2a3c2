package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/config"
)

func TestRuntimeConfigDefaults(t *testing.T) {
	rc, err := config.NewRuntimeConfig(config.Config{})
	assert.NoError(t, err)
	assert.Equal(t, 0.05, rc.Interval)
	assert.Equal(t, 1.0, rc.Timeout)
	assert.Equal(t, 13.89, rc.HighwaySpeed)
	assert.Equal(t, 30.0, rc.SpeedDifference)
	assert.Equal(t, 5.0, rc.DistanceToLeading)
	assert.Equal(t, config.GainSet{KP: 2.0, KI: 0.05, KD: 0.07}, rc.Longitudinal)
	assert.Equal(t, config.GainSet{KP: 4.0, KI: 0.02, KD: 0.03}, rc.LongitudinalHighway)
	assert.Equal(t, config.GainSet{KP: 10.0, KI: 0.0, KD: 0.1}, rc.Lateral)
	assert.Equal(t, config.GainSet{KP: 9.0, KI: 0.0, KD: 0.1}, rc.LateralHighway)
}

func TestRuntimeConfigOverride(t *testing.T) {
	rc, err := config.NewRuntimeConfig(config.Config{
		Control: config.Control{Step: config.ControlStep{Interval: 0.1, Timeout: 2}},
		PID: config.PID{
			Longitudinal: []float64{1, 2, 3},
			HighwaySpeed: 20,
		},
		Behavior: config.Behavior{SpeedDifference: 10, DistanceToLeading: 8},
	})
	assert.NoError(t, err)
	assert.Equal(t, 0.1, rc.Interval)
	assert.Equal(t, 2.0, rc.Timeout)
	assert.Equal(t, config.GainSet{KP: 1, KI: 2, KD: 3}, rc.Longitudinal)
	assert.Equal(t, 20.0, rc.HighwaySpeed)
	assert.Equal(t, 10.0, rc.SpeedDifference)
	assert.Equal(t, 8.0, rc.DistanceToLeading)
}

func TestRuntimeConfigBadPID(t *testing.T) {
	_, err := config.NewRuntimeConfig(config.Config{
		PID: config.PID{Lateral: []float64{1, 2}},
	})
	assert.Error(t, err)
	_, err = config.NewRuntimeConfig(config.Config{
		PID: config.PID{Longitudinal: []float64{1, -2, 3}},
	})
	assert.Error(t, err)
}

func TestRuntimeConfigBadBehavior(t *testing.T) {
	_, err := config.NewRuntimeConfig(config.Config{
		Behavior: config.Behavior{SpeedDifference: 150},
	})
	assert.Error(t, err)
	_, err = config.NewRuntimeConfig(config.Config{
		Behavior: config.Behavior{DistanceToLeading: -1},
	})
	assert.Error(t, err)
}

func TestCheckPercentage(t *testing.T) {
	assert.NoError(t, config.CheckPercentage(0))
	assert.NoError(t, config.CheckPercentage(100))
	assert.Error(t, config.CheckPercentage(-1))
	assert.Error(t, config.CheckPercentage(100.1))
}
