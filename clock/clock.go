package clock

import (
	"fmt"
	"sync/atomic"
)

// Clock 流水线时钟
// 功能：维护单调递增的epoch计数与对应的模拟时间
// 说明：epoch是一次完整流水线处理（定位到批量执行）的标识，
// 只由批量控制阶段推进；DT为每个epoch对应的模拟时间步长，
// 运动规划阶段用它做PID积分
type Clock struct {
	DT float64 // 每个epoch的时间间隔（秒）

	epoch atomic.Uint64 // 当前epoch
}

// New 创建时钟
func New(dt float64) *Clock {
	return &Clock{DT: dt}
}

// Epoch 获取当前epoch
func (c *Clock) Epoch() uint64 {
	return c.epoch.Load()
}

// Advance 推进一个epoch，返回推进后的值
func (c *Clock) Advance() uint64 {
	return c.epoch.Add(1)
}

// T 当前模拟时间（秒）
func (c *Clock) T() float64 {
	return float64(c.epoch.Load()) * c.DT
}

// String 格式化为 HH:MM:SS
func (c *Clock) String() string {
	t := c.T()
	h := int(t / 3600)
	t -= float64(h * 3600)
	m := int(t / 60)
	t -= float64(m * 60)
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
