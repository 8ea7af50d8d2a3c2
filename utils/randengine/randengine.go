// 随机数引擎，包装了golang.org/x/exp/rand。
// 每辆注册车辆在注册时以自身ID为种子创建一个引擎，
// 保证概率行为（忽略车辆、闯红灯等）可复现。
package randengine

import (
	"flag"
	"sync"

	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于整体调整随机数序列
)

// Draw 伯努利抽签函数
// 功能：以概率p返回true的抽签，暴露为可注入函数，测试中可替换为确定性实现
type Draw func(e *Engine, p float64) bool

// Engine 随机数引擎
// 说明：多个流水线阶段会并发访问同一车辆的引擎，带锁方法以Safe后缀区分
type Engine struct {
	*rand.Rand
	mtx sync.Mutex
}

// New 创建随机数引擎
// 参数：seed-随机数种子（注册时取车辆ID）
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// PTrue 以指定概率返回true（非线程安全）
func (e *Engine) PTrue(p float64) bool {
	return e.Float64() < p
}

// PTrueSafe 以指定概率返回true（线程安全）
func (e *Engine) PTrueSafe(p float64) bool {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Float64() < p
}

// Float64Safe 随机生成[0.0,1.0)浮点数（线程安全）
func (e *Engine) Float64Safe() float64 {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Float64()
}

// IntnSafe 随机生成[0,n)整数（线程安全）
func (e *Engine) IntnSafe(n int) int {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Intn(n)
}

// PTrueDraw 默认的可注入抽签实现
func PTrueDraw(e *Engine, p float64) bool {
	return e.PTrueSafe(p)
}

// AlwaysDraw 恒定抽签实现，测试用
func AlwaysDraw(result bool) Draw {
	return func(e *Engine, p float64) bool {
		return result
	}
}
