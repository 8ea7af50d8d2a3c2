package local_test

import (
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/entity"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/local"
)

func TestWorldVehicleKinematics(t *testing.T) {
	w := local.NewWorld(0.1, nil)
	w.AddVehicle(1, geometry.Point{}, 0, 10)

	// 满油门加速
	for i := 0; i < 20; i++ {
		assert.NoError(t, w.ApplyBatch(map[entity.ActorID]entity.ControlCommand{
			1: {Throttle: 1},
		}))
	}
	s, err := w.ActorState(1)
	assert.NoError(t, err)
	assert.InDelta(t, 6, s.Speed(), 1e-9)
	assert.Greater(t, s.Transform.Position.X, 0.0)
	assert.Equal(t, 0.0, s.Transform.Position.Y)

	// 满刹车不倒车
	for i := 0; i < 20; i++ {
		assert.NoError(t, w.ApplyBatch(map[entity.ActorID]entity.ControlCommand{
			1: {Brake: 1},
		}))
	}
	s, _ = w.ActorState(1)
	assert.Equal(t, 0.0, s.Speed())
}

func TestWorldHandBrake(t *testing.T) {
	w := local.NewWorld(0.1, nil)
	w.AddVehicle(1, geometry.Point{}, 0, 10)
	w.ApplyBatch(map[entity.ActorID]entity.ControlCommand{1: {Throttle: 1}})
	w.ApplyBatch(map[entity.ActorID]entity.ControlCommand{1: {Throttle: 1, HandBrake: true}})
	s, _ := w.ActorState(1)
	assert.Equal(t, 0.0, s.Speed())
}

func TestWorldUnknownVehicle(t *testing.T) {
	w := local.NewWorld(0.1, nil)
	_, err := w.ActorState(404)
	assert.Error(t, err)
	// 未知车辆的指令被丢弃，不报错
	assert.NoError(t, w.ApplyBatch(map[entity.ActorID]entity.ControlCommand{404: {Throttle: 1}}))
}

func TestWorldRemoveVehicle(t *testing.T) {
	w := local.NewWorld(0.1, nil)
	w.AddVehicle(1, geometry.Point{}, 0, 10)
	w.RemoveVehicle(1)
	s, err := w.ActorState(1)
	assert.NoError(t, err)
	assert.False(t, s.Alive)
}

func TestWorldLightCycle(t *testing.T) {
	w := local.NewWorld(0.1, nil)
	l := w.AddLight(1, 1, entity.LightStateRed, 2)
	assert.Equal(t, entity.LightStateRed, l.State())

	// 状态机随批量下发步进
	w.ApplyBatch(nil)
	assert.Equal(t, entity.LightStateRed, l.State())
	w.ApplyBatch(nil)
	assert.Equal(t, entity.LightStateGreen, l.State())

	// 冻结后计时停走
	l.Freeze(true)
	assert.True(t, l.IsFrozen())
	for i := 0; i < 5; i++ {
		w.ApplyBatch(nil)
	}
	assert.Equal(t, entity.LightStateGreen, l.State())
	l.Freeze(false)
	w.ApplyBatch(nil)
	w.ApplyBatch(nil)
	assert.Equal(t, entity.LightStateRed, l.State())

	lt, err := w.Light(1)
	assert.NoError(t, err)
	assert.Equal(t, int32(1), lt.ID())
	assert.Len(t, w.Lights(), 1)
	_, err = w.Light(2)
	assert.Error(t, err)
}

func TestWorldConstantLight(t *testing.T) {
	w := local.NewWorld(0.1, nil)
	l := w.AddLight(1, 1, entity.LightStateGreen, 0)
	for i := 0; i < 10; i++ {
		w.ApplyBatch(nil)
	}
	assert.Equal(t, entity.LightStateGreen, l.State())
}
