package trafficmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/config"
)

func TestPIDProportional(t *testing.T) {
	a := &pidAxis{}
	g := config.GainSet{KP: 2}
	assert.Equal(t, 6.0, a.step(g, 3, 0.1))
	assert.Equal(t, -6.0, a.step(g, -3, 0.1))
}

func TestPIDIntegralClamp(t *testing.T) {
	a := &pidAxis{}
	g := config.GainSet{KI: 1}
	var out float64
	for i := 0; i < 100; i++ {
		out = a.step(g, 100, 1)
	}
	// 积分限幅生效，输出不随误差持续累积
	assert.Equal(t, integralLimit, out)
}

func TestPIDDerivative(t *testing.T) {
	a := &pidAxis{}
	g := config.GainSet{KD: 1}
	assert.Equal(t, 1.0, a.step(g, 1, 1))
	assert.Equal(t, 2.0, a.step(g, 3, 1))
	a.reset()
	assert.Equal(t, 1.0, a.step(g, 1, 1))
}
