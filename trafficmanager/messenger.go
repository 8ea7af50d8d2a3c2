package trafficmanager

import (
	"time"
)

// Frame 带epoch标签的阶段间数据帧
// 说明：消费者通过Epoch判断帧的新旧，绝不处理与自身当前epoch
// 不一致的帧（异步模式允许使用落后若干epoch的最新帧）
type Frame[T any] struct {
	Epoch uint64
	Data  []T
}

// Messenger 单生产者/单消费者的阶段间通道
// 功能：容量为1的有界交接通道，连接相邻流水线阶段
// 说明：
//   - 生产者以"最新帧优先"方式写入：缓冲被旧帧占用时丢弃旧帧，
//     保证内存有界且下游总能拿到最新数据
//   - 所有阻塞操作都带超时，并受stop通道控制，
//     因此上游阻塞不会卡死Stop()路径
type Messenger[T any] struct {
	ch      chan Frame[T]
	stop    <-chan struct{}
	timeout time.Duration
}

// NewMessenger 创建messenger
// 参数：stop-管理器的停止通知通道，timeout-有界等待时长
func NewMessenger[T any](stop <-chan struct{}, timeout time.Duration) *Messenger[T] {
	return &Messenger[T]{
		ch:      make(chan Frame[T], 1),
		stop:    stop,
		timeout: timeout,
	}
}

// Send 推送一帧
// 返回：false表示管理器已停止或超时，调用方应退出循环
// 算法说明：
// 1. 先尝试无阻塞写入
// 2. 缓冲被占用则丢弃其中的旧帧再写入（latest-wins）
// 3. 仍无法写入则有界等待
func (m *Messenger[T]) Send(f Frame[T]) bool {
	select {
	case m.ch <- f:
		return true
	case <-m.stop:
		return false
	default:
	}
	// 消费者尚未取走上一帧，旧帧作废
	select {
	case old := <-m.ch:
		log.Debugf("messenger: drop stale frame of epoch %d", old.Epoch)
	default:
	}
	timer := time.NewTimer(m.timeout)
	defer timer.Stop()
	select {
	case m.ch <- f:
		return true
	case <-m.stop:
		return false
	case <-timer.C:
		return false
	}
}

// Receive 取走一帧，有界阻塞
// 返回：ok为false表示停止或超时（无新帧）
func (m *Messenger[T]) Receive() (Frame[T], bool) {
	timer := time.NewTimer(m.timeout)
	defer timer.Stop()
	select {
	case f := <-m.ch:
		return f, true
	case <-m.stop:
		return Frame[T]{}, false
	case <-timer.C:
		return Frame[T]{}, false
	}
}

// TryReceive 无阻塞取帧
func (m *Messenger[T]) TryReceive() (Frame[T], bool) {
	select {
	case f := <-m.ch:
		return f, true
	default:
		return Frame[T]{}, false
	}
}

// Stopped 管理器是否已发出停止通知
func (m *Messenger[T]) Stopped() bool {
	select {
	case <-m.stop:
		return true
	default:
		return false
	}
}
