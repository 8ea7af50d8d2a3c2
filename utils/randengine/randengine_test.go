package randengine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/randengine"
)

func TestEngineDeterminism(t *testing.T) {
	e1 := randengine.New(42)
	e2 := randengine.New(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, e1.Float64Safe(), e2.Float64Safe())
	}
}

func TestEnginePTrue(t *testing.T) {
	e := randengine.New(1)
	for i := 0; i < 100; i++ {
		assert.False(t, e.PTrueSafe(0))
		assert.True(t, e.PTrueSafe(1))
	}
}

func TestEngineIntn(t *testing.T) {
	e := randengine.New(7)
	for i := 0; i < 100; i++ {
		v := e.IntnSafe(3)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 3)
	}
}

func TestAlwaysDraw(t *testing.T) {
	e := randengine.New(1)
	assert.True(t, randengine.AlwaysDraw(true)(e, 0))
	assert.False(t, randengine.AlwaysDraw(false)(e, 1))
}
