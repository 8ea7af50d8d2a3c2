package trafficmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/entity"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/config"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/randengine"
)

func TestRunLightDrawPerRedPhase(t *testing.T) {
	rc, err := config.NewRuntimeConfig(config.Config{})
	assert.NoError(t, err)
	params := NewParameters(rc)
	params.SetRunLightPct(1, 100)
	reg := NewRegistry()
	reg.Add(1)

	draws := 0
	results := []bool{false, true}
	s := &plannerStage{
		params: params,
		cfg:    rc,
		reg:    reg,
		draw: func(e *randengine.Engine, p float64) bool {
			r := results[draws]
			draws++
			return r
		},
	}
	st := &pidState{}
	rec := LocalizationRecord{ID: 1}
	red := LightRecord{ID: 1, LightID: 5, State: entity.LightStateRed}
	green := LightRecord{ID: 1, LightID: 5, State: entity.LightStateGreen}

	// 第一个红灯相位：抽签未命中则停车，相位内不重抽
	assert.True(t, s.lightStop(rec, red, st))
	assert.True(t, s.lightStop(rec, red, st))
	assert.Equal(t, 1, draws)

	// 转绿放行并解除锁存
	assert.False(t, s.lightStop(rec, green, st))

	// 同一盏灯的下一个红灯相位重新抽签：命中则放行
	assert.False(t, s.lightStop(rec, red, st))
	assert.Equal(t, 2, draws)
	assert.False(t, s.lightStop(rec, red, st))
	assert.Equal(t, 2, draws)
}

func TestRunLightLatchClearsOnLightChange(t *testing.T) {
	rc, err := config.NewRuntimeConfig(config.Config{})
	assert.NoError(t, err)
	params := NewParameters(rc)
	params.SetRunLightPct(1, 100)
	reg := NewRegistry()
	reg.Add(1)

	draws := 0
	s := &plannerStage{
		params: params,
		cfg:    rc,
		reg:    reg,
		draw: func(e *randengine.Engine, p float64) bool {
			draws++
			return false
		},
	}
	st := &pidState{}
	rec := LocalizationRecord{ID: 1}

	assert.True(t, s.lightStop(rec, LightRecord{ID: 1, LightID: 5, State: entity.LightStateRed}, st))
	// 前方无灯时解除锁存
	assert.False(t, s.lightStop(rec, LightRecord{ID: 1}, st))
	// 换了一盏灯：重新抽签
	assert.True(t, s.lightStop(rec, LightRecord{ID: 1, LightID: 6, State: entity.LightStateRed}, st))
	assert.Equal(t, 2, draws)
}
