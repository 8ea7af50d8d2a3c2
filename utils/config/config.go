package config

import (
	"fmt"
)

// 内置默认值
const (
	defaultInterval          = 0.05  // epoch时间步长（秒）
	defaultTimeout           = 1.0   // 阶段间有界等待（秒）
	defaultHighwaySpeed      = 13.89 // 50km/h
	defaultSpeedDifference   = 30.0  // 相对限速低30%
	defaultDistanceToLeading = 5.0   // 跟车距离（米）
	defaultHorizonMin        = 30.0  // 最小视野（米）
	defaultHorizonTime       = 4.0   // 视野时间系数（秒）
	defaultDeviation         = 5.0   // 偏离重规划阈值（米）
	defaultResolution        = 2.0   // 航点采样间隔（米）
	defaultSafetyRadius      = 3.0   // 碰撞安全半径（米），小于相邻车道间距以免误报
)

// GainSet 单组PID系数，构造后不可变
type GainSet struct {
	KP float64
	KI float64
	KD float64
}

// RuntimeConfig 运行时配置
// 功能：对YAML配置做校验、填默认值，并将PID向量固化为GainSet
// 说明：Start()之后不再修改，所有阶段只读
type RuntimeConfig struct {
	All Config // 全部原始配置

	Interval float64 // epoch时间步长（秒）
	Timeout  float64 // 阶段间有界等待（秒）

	Longitudinal        GainSet // 纵向（城市）
	LongitudinalHighway GainSet // 纵向（高速）
	Lateral             GainSet // 横向（城市）
	LateralHighway      GainSet // 横向（高速）
	HighwaySpeed        float64 // 城市/高速切换阈值（米/秒）

	SpeedDifference   float64 // 全局速度差百分比默认值
	DistanceToLeading float64 // 全局跟车距离默认值（米）

	HorizonMinDistance float64 // 视野最小前向距离（米）
	HorizonTimeFactor  float64 // 视野时间系数（秒）
	DeviationThreshold float64 // 偏离重规划阈值（米）
	WaypointResolution float64 // 航点采样间隔（米）

	SafetyRadius float64 // 碰撞安全半径（米）
}

// toGainSet 校验并转换单组PID系数向量
// 说明：向量必须为空（使用默认值）或恰好3个非负元素[kp, ki, kd]
func toGainSet(v []float64, name string, fallback GainSet) (GainSet, error) {
	if len(v) == 0 {
		return fallback, nil
	}
	if len(v) != 3 {
		return GainSet{}, fmt.Errorf("config: pid.%s must have exactly 3 elements [kp, ki, kd], got %d", name, len(v))
	}
	for _, x := range v {
		if x < 0 {
			return GainSet{}, fmt.Errorf("config: pid.%s has negative coefficient %v", name, x)
		}
	}
	return GainSet{KP: v[0], KI: v[1], KD: v[2]}, nil
}

// CheckPercentage 校验百分比取值范围[0,100]
func CheckPercentage(pct float64) error {
	if pct < 0 || pct > 100 {
		return fmt.Errorf("config: percentage %v out of range [0,100]", pct)
	}
	return nil
}

// NewRuntimeConfig 根据配置构建运行时配置
// 算法说明：
// 1. 逐项校验PID向量并转换，空向量取内置默认值
// 2. 行为参数做范围校验
// 3. 其余数值为零时填默认值
func NewRuntimeConfig(c Config) (*RuntimeConfig, error) {
	rc := &RuntimeConfig{All: c}

	var err error
	if rc.Longitudinal, err = toGainSet(
		c.PID.Longitudinal, "longitudinal", GainSet{KP: 2.0, KI: 0.05, KD: 0.07}); err != nil {
		return nil, err
	}
	if rc.LongitudinalHighway, err = toGainSet(
		c.PID.LongitudinalHighway, "longitudinal_highway", GainSet{KP: 4.0, KI: 0.02, KD: 0.03}); err != nil {
		return nil, err
	}
	if rc.Lateral, err = toGainSet(
		c.PID.Lateral, "lateral", GainSet{KP: 10.0, KI: 0.0, KD: 0.1}); err != nil {
		return nil, err
	}
	if rc.LateralHighway, err = toGainSet(
		c.PID.LateralHighway, "lateral_highway", GainSet{KP: 9.0, KI: 0.0, KD: 0.1}); err != nil {
		return nil, err
	}

	if err := CheckPercentage(orDefault(c.Behavior.SpeedDifference, defaultSpeedDifference)); err != nil {
		return nil, err
	}
	if c.Behavior.DistanceToLeading < 0 {
		return nil, fmt.Errorf("config: behavior.distance_to_leading %v is negative", c.Behavior.DistanceToLeading)
	}
	if c.Control.Step.Interval < 0 || c.Control.Step.Timeout < 0 {
		return nil, fmt.Errorf("config: control.step has negative interval/timeout")
	}

	rc.Interval = orDefault(c.Control.Step.Interval, defaultInterval)
	rc.Timeout = orDefault(c.Control.Step.Timeout, defaultTimeout)
	rc.HighwaySpeed = orDefault(c.PID.HighwaySpeed, defaultHighwaySpeed)
	rc.SpeedDifference = orDefault(c.Behavior.SpeedDifference, defaultSpeedDifference)
	rc.DistanceToLeading = orDefault(c.Behavior.DistanceToLeading, defaultDistanceToLeading)
	rc.HorizonMinDistance = orDefault(c.Horizon.MinDistance, defaultHorizonMin)
	rc.HorizonTimeFactor = orDefault(c.Horizon.TimeFactor, defaultHorizonTime)
	rc.DeviationThreshold = orDefault(c.Horizon.Deviation, defaultDeviation)
	rc.WaypointResolution = orDefault(c.Horizon.Resolution, defaultResolution)
	rc.SafetyRadius = orDefault(c.Collision.SafetyRadius, defaultSafetyRadius)

	return rc, nil
}

func orDefault(v, d float64) float64 {
	if v == 0 {
		return d
	}
	return v
}
