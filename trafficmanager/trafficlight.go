package trafficmanager

import (
	"math"
	"time"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/entity"
)

const (
	checkFrozenRetries  = 10                     // 冻结确认的最大轮询次数
	checkFrozenInterval = 100 * time.Millisecond // 轮询间隔
)

// trafficLightStage 信控阶段
// 功能：每个epoch为每辆车确定管控信号灯（如有）及其实时状态与停车线距离；
// 另提供重置协议使用的冻结确认轮询
type trafficLightStage struct {
	sim entity.ILightQuery

	in  *Messenger[LocalizationRecord]
	out *Messenger[LightRecord]

	stop <-chan struct{}
}

// run 阶段主循环
func (s *trafficLightStage) run() {
	for {
		f, ok := s.in.Receive()
		if !ok {
			if s.in.Stopped() {
				return
			}
			continue
		}
		out := parallel.GoMap(f.Data, func(rec LocalizationRecord) LightRecord {
			return s.resolve(rec)
		})
		if !s.out.Send(Frame[LightRecord]{Epoch: f.Epoch, Data: out}) && s.out.Stopped() {
			return
		}
	}
}

// resolve 确定单个车辆的管控信号灯
// 算法说明：
// 1. 车辆已在路口内（视野头部为路口车道）则视为已通过停车线，无管控灯
// 2. 否则沿视野找第一处道路车道到路口车道的入口过渡，
//    入口处即停车线，取该路口车道的信号灯
// 3. 状态查询瞬时失败时上报Unknown，本epoch按无约束处理
func (s *trafficLightStage) resolve(rec LocalizationRecord) LightRecord {
	out := LightRecord{ID: rec.ID}
	if len(rec.Horizon) == 0 || rec.Horizon[0].InJunction() {
		return out
	}
	dist := 0.0
	for i := 1; i < len(rec.Horizon); i++ {
		a, b := rec.Horizon[i-1].Position(), rec.Horizon[i].Position()
		dist += math.Hypot(b.X-a.X, b.Y-a.Y)
		wp := rec.Horizon[i]
		if !wp.InJunction() || rec.Horizon[i-1].InJunction() {
			continue
		}
		// 路口入口
		if wp.LightID() == 0 {
			return out // 无信控路口
		}
		light, err := s.sim.Light(wp.LightID())
		if err != nil {
			log.Debugf("trafficlight: light %d query failed: %v", wp.LightID(), err)
			out.LightID = wp.LightID()
			out.State = entity.LightStateUnknown
			out.Distance = dist
			return out
		}
		out.LightID = light.ID()
		out.State = light.State()
		out.Distance = dist
		return out
	}
	return out
}

// CheckAllFrozen 冻结确认轮询
// 功能：轮询一组信号灯直到全部上报冻结，或重试次数耗尽
// 说明：该调用阻塞发起线程（非流水线阶段），
// 重试耗尽按软失败返回false，绝不无限阻塞
func (s *trafficLightStage) CheckAllFrozen(lights []entity.ILight) bool {
	for attempt := 0; attempt < checkFrozenRetries; attempt++ {
		frozen := true
		for _, l := range lights {
			if !l.IsFrozen() {
				frozen = false
				break
			}
		}
		if frozen {
			return true
		}
		select {
		case <-s.stop:
			return false
		case <-time.After(checkFrozenInterval):
		}
	}
	return false
}
