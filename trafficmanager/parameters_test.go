package trafficmanager_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/entity"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/trafficmanager"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/config"
)

func newParams(t *testing.T) *trafficmanager.Parameters {
	rc, err := config.NewRuntimeConfig(config.Config{})
	assert.NoError(t, err)
	return trafficmanager.NewParameters(rc)
}

func TestParametersFallback(t *testing.T) {
	p := newParams(t)
	// 未覆盖时回退到全局默认
	assert.Equal(t, 30.0, p.SpeedDifference(1))
	assert.True(t, p.AutoLaneChange(1))
	assert.Equal(t, 5.0, p.DistanceToLeading(1))
	assert.Equal(t, 0.0, p.IgnoreActorsPct(1))
	assert.Equal(t, 0.0, p.RunLightPct(1))

	p.SetSpeedDifference(1, 50)
	assert.Equal(t, 50.0, p.SpeedDifference(1))
	assert.Equal(t, 30.0, p.SpeedDifference(2))

	// 全局修改只影响未覆盖的项
	p.SetGlobalSpeedDifference(10)
	assert.Equal(t, 50.0, p.SpeedDifference(1))
	assert.Equal(t, 10.0, p.SpeedDifference(2))

	// 单车记录按字段覆盖，未设置的字段仍走全局
	p.SetAutoLaneChange(2, false)
	assert.False(t, p.AutoLaneChange(2))
	assert.Equal(t, 10.0, p.SpeedDifference(2))
}

func TestParametersCollisionSymmetry(t *testing.T) {
	p := newParams(t)
	assert.False(t, p.CollisionDisabled(1, 2))
	p.SetCollisionDetection(1, 2, false)
	assert.True(t, p.CollisionDisabled(1, 2))
	assert.True(t, p.CollisionDisabled(2, 1))
	p.SetCollisionDetection(2, 1, true)
	assert.False(t, p.CollisionDisabled(1, 2))
}

func TestParametersForceLaneChangeOneShot(t *testing.T) {
	p := newParams(t)
	assert.Equal(t, entity.LaneChangeNone, p.ConsumeForceLaneChange(1))

	p.SetForceLaneChange(1, entity.LaneChangeLeft)
	assert.Equal(t, entity.LaneChangeLeft, p.ConsumeForceLaneChange(1))
	// 一次性语义：消费后即清除
	assert.Equal(t, entity.LaneChangeNone, p.ConsumeForceLaneChange(1))

	// 未消费的请求被新请求覆盖
	p.SetForceLaneChange(1, entity.LaneChangeLeft)
	p.SetForceLaneChange(1, entity.LaneChangeRight)
	assert.Equal(t, entity.LaneChangeRight, p.ConsumeForceLaneChange(1))

	// None撤销未消费的请求
	p.SetForceLaneChange(1, entity.LaneChangeLeft)
	p.SetForceLaneChange(1, entity.LaneChangeNone)
	assert.Equal(t, entity.LaneChangeNone, p.ConsumeForceLaneChange(1))
}

func TestParametersRemoveActor(t *testing.T) {
	p := newParams(t)
	p.SetSpeedDifference(1, 80)
	p.SetCollisionDetection(1, 2, false)
	p.SetForceLaneChange(1, entity.LaneChangeLeft)

	p.RemoveActor(1)
	assert.Equal(t, 30.0, p.SpeedDifference(1))
	assert.False(t, p.CollisionDisabled(1, 2))
	assert.Equal(t, entity.LaneChangeNone, p.ConsumeForceLaneChange(1))
}
