package trafficmanager

import (
	"sync/atomic"

	"github.com/tsinghua-fib-lab/trafficmanager-oss/clock"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/entity"
)

const heartbeatEpochs = 200 // 心跳日志间隔（epoch数）

// batchControlStage 批量控制阶段（流水线尾端）
// 功能：收集运动规划输出，补齐缺失车辆的指令后整批下发外部模拟，
// 推进时钟；同步模式下发出epoch完成信号
type batchControlStage struct {
	sim      entity.IBatchApplier
	registry *Registry
	clk      *clock.Clock

	in *Messenger[CommandRecord]

	syncMode *atomic.Bool
	tickDone chan<- struct{}
	stop     <-chan struct{}

	// 上一epoch的指令缓存：本epoch无新指令的注册车辆
	// （定位暂失败等瞬时情况）维持旧指令，避免控制抖动
	prev map[entity.ActorID]entity.ControlCommand
}

// run 阶段主循环
func (s *batchControlStage) run() {
	s.prev = make(map[entity.ActorID]entity.ControlCommand)
	for {
		f, ok := s.in.Receive()
		if !ok {
			if s.in.Stopped() {
				return
			}
			continue
		}
		batch := make(map[entity.ActorID]entity.ControlCommand, len(f.Data))
		for _, rec := range f.Data {
			batch[rec.ID] = rec.Command
			s.prev[rec.ID] = rec.Command
		}
		for _, id := range s.registry.IDs() {
			if _, ok := batch[id]; ok {
				continue
			}
			if cmd, ok := s.prev[id]; ok {
				batch[id] = cmd
			}
		}
		// 注销车辆的缓存随之清理
		for id := range s.prev {
			if !s.registry.Contains(id) {
				delete(s.prev, id)
			}
		}

		if err := s.sim.ApplyBatch(batch); err != nil {
			log.Errorf("batchcontrol: apply batch of epoch %d failed: %v", f.Epoch, err)
		}
		epoch := s.clk.Advance()
		if epoch%heartbeatEpochs == 0 {
			log.Infof("batchcontrol: epoch %d, t=%s, actors=%d", epoch, s.clk, len(batch))
		}

		if s.syncMode.Load() {
			select {
			case s.tickDone <- struct{}{}:
			case <-s.stop:
				return
			}
		}
	}
}
