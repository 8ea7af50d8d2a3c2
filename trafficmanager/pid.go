package trafficmanager

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/config"
)

const (
	integralLimit = 5.0 // 积分限幅，防止windup
)

// pidAxis 单轴PID控制器状态
type pidAxis struct {
	integral float64 // 累积积分项
	prev     float64 // 上一epoch的误差，用于差分
}

// step 推进一步并输出控制量
// 参数：g-本epoch选中的系数组，e-当前误差，dt-epoch时间步长（秒）
func (a *pidAxis) step(g config.GainSet, e, dt float64) float64 {
	a.integral = lo.Clamp(a.integral+e*dt, -integralLimit, integralLimit)
	d := 0.0
	if dt > 0 {
		d = (e - a.prev) / dt
	}
	a.prev = e
	return g.KP*e + g.KI*a.integral + g.KD*d
}

// reset 清零控制器状态
func (a *pidAxis) reset() {
	a.integral = 0
	a.prev = 0
}

// pidState 单个车辆的控制器状态
// 说明：只由运动规划阶段的goroutine读写，车辆从帧中消失时删除
type pidState struct {
	lon pidAxis // 纵向（油门/刹车）
	lat pidAxis // 横向（转向）

	// 闯红灯抽签结果：首次遇到红灯时抽一次并锁存，
	// 直到离开该信号灯的管控范围才解除
	runLight        bool
	runLightLatched bool
	runLightID      int32 // 锁存对应的信号灯
}
