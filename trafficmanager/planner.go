package trafficmanager

import (
	"math"
	"sync/atomic"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/clock"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/entity"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/config"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/randengine"
)

const (
	lookaheadMin  = 3.0 // 横向控制的最小前视距离（米）
	lookaheadTime = 0.5 // 横向控制的前视时间系数（秒）
)

// plannerStage 运动规划阶段
// 功能：汇聚定位、碰撞检测、信控三路输入，经双轴PID产生每辆车的
// 油门/转向/刹车指令
// 说明：pidState由本阶段goroutine独占持有，不做任何加锁
type plannerStage struct {
	params *Parameters
	cfg    *config.RuntimeConfig
	clk    *clock.Clock
	reg    *Registry
	draw   randengine.Draw

	in       *Messenger[LocalizationRecord]
	inHazard *Messenger[HazardRecord]
	inLight  *Messenger[LightRecord]
	out      *Messenger[CommandRecord]

	syncMode *atomic.Bool

	states      map[entity.ActorID]*pidState
	lastHazards Frame[HazardRecord] // 异步模式下缓存的最新帧
	lastLights  Frame[LightRecord]
}

// run 阶段主循环
// 算法说明：
// 1. 以定位帧为节拍；旁路帧（裁定/信控）同步模式下要求epoch一致，
//    异步模式下允许沿用缓存的最新帧
// 2. 逐车规划并组帧下发
// 3. 删除已从帧中消失的车辆的控制器状态
func (s *plannerStage) run() {
	s.states = make(map[entity.ActorID]*pidState)
	for {
		f, ok := s.in.Receive()
		if !ok {
			if s.in.Stopped() {
				return
			}
			continue
		}
		hazards := sideFrame(s.syncMode.Load(), s.inHazard, &s.lastHazards, f.Epoch)
		lights := sideFrame(s.syncMode.Load(), s.inLight, &s.lastLights, f.Epoch)
		hzByID := make(map[entity.ActorID]HazardRecord, len(hazards))
		for _, h := range hazards {
			hzByID[h.ID] = h
		}
		ltByID := make(map[entity.ActorID]LightRecord, len(lights))
		for _, l := range lights {
			ltByID[l.ID] = l
		}

		data := make([]CommandRecord, 0, len(f.Data))
		seen := make(map[entity.ActorID]struct{}, len(f.Data))
		for _, rec := range f.Data {
			seen[rec.ID] = struct{}{}
			data = append(data, CommandRecord{
				ID:      rec.ID,
				Command: s.plan(rec, hzByID[rec.ID], ltByID[rec.ID]),
			})
		}
		for id := range s.states {
			if _, ok := seen[id]; !ok {
				delete(s.states, id)
			}
		}
		if !s.out.Send(Frame[CommandRecord]{Epoch: f.Epoch, Data: data}) && s.out.Stopped() {
			return
		}
	}
}

// sideFrame 获取旁路输入帧
// 说明：同步模式下阻塞等待epoch一致的帧（各阶段锁步推进，一次
// Receive即命中）；异步模式下取走可用的最新帧、否则沿用缓存
func sideFrame[T any](sync bool, m *Messenger[T], last *Frame[T], epoch uint64) []T {
	if sync {
		for {
			f, ok := m.Receive()
			if !ok {
				log.Warnf("planner: side input missing for epoch %d", epoch)
				return nil
			}
			if f.Epoch == epoch {
				*last = f
				return f.Data
			}
			// 落后帧作废，继续等
		}
	}
	if f, ok := m.TryReceive(); ok {
		*last = f
	}
	return last.Data
}

// plan 单车规划
// 算法说明：
// 1. 目标速度 = 限速 ×（1 − 速度差百分比/100）
// 2. 让行裁定按间距衰减目标速度，间距小于期望跟车距离时停车
// 3. 红灯且未命中闯红灯抽签时目标速度归零；抽签结果按灯锁存
// 4. 纵向/横向各一组PID，车速超过高速阈值时换用高速系数
func (s *plannerStage) plan(rec LocalizationRecord, hz HazardRecord, lt LightRecord) entity.ControlCommand {
	st, ok := s.states[rec.ID]
	if !ok {
		st = &pidState{}
		s.states[rec.ID] = st
	}
	speed := rec.State.Speed()

	limit := rec.State.SpeedLimit
	if limit <= 0 && len(rec.Horizon) > 0 {
		limit = rec.Horizon[0].MaxV()
	}
	target := limit * (1 - s.params.SpeedDifference(rec.ID)/100)

	if hz.MustYield {
		follow := s.params.DistanceToLeading(rec.ID)
		if hz.Distance <= follow {
			target = 0
		} else {
			// 随间距收窄线性减速
			target = math.Min(target, target*(hz.Distance-follow)/hz.Distance)
		}
	}

	if stop := s.lightStop(rec, lt, st); stop {
		target = 0
	}

	lonGain, latGain := s.cfg.Longitudinal, s.cfg.Lateral
	if speed > s.cfg.HighwaySpeed {
		lonGain, latGain = s.cfg.LongitudinalHighway, s.cfg.LateralHighway
	}

	cmd := entity.ControlCommand{}
	lon := st.lon.step(lonGain, target-speed, s.clk.DT)
	if lon >= 0 {
		cmd.Throttle = lo.Clamp(lon, 0, 1)
	} else {
		cmd.Brake = lo.Clamp(-lon, 0, 1)
	}

	lat := st.lat.step(latGain, s.headingError(rec, speed), s.clk.DT)
	cmd.Steer = lo.Clamp(lat, -1, 1)
	return cmd
}

// lightStop 红灯停车判定
// 说明：每个红灯相位按闯红灯概率抽一次签并锁存，相位内不重抽；
// 灯转绿、灯变更或前方无灯时解除锁存
func (s *plannerStage) lightStop(rec LocalizationRecord, lt LightRecord, st *pidState) bool {
	if lt.LightID == 0 || st.runLightID != lt.LightID {
		st.runLightLatched = false
		st.runLightID = lt.LightID
	}
	if lt.LightID == 0 {
		return false
	}
	switch lt.State {
	case entity.LightStateRed, entity.LightStateYellow:
	case entity.LightStateGreen:
		// 绿灯相位解除锁存，同一盏灯再次转红时重新抽签
		st.runLightLatched = false
		return false
	default:
		return false
	}
	if !st.runLightLatched {
		st.runLightLatched = true
		st.runLight = false
		if pct := s.params.RunLightPct(rec.ID); pct > 0 {
			if engine := s.reg.Engine(rec.ID); engine != nil {
				st.runLight = s.draw(engine, pct/100)
			}
		}
	}
	return !st.runLight
}

// headingError 横向控制误差
// 算法说明：取视野中前视距离处的航点为瞄准点，
// 误差为瞄准方向与车头朝向的夹角，归一化到(-π, π]，左偏为正
func (s *plannerStage) headingError(rec LocalizationRecord, speed float64) float64 {
	if len(rec.Horizon) == 0 {
		return 0
	}
	lookahead := math.Max(lookaheadMin, speed*lookaheadTime)
	pos := rec.State.Transform.Position
	aim := rec.Horizon[len(rec.Horizon)-1]
	acc := 0.0
	for i, wp := range rec.Horizon {
		if i > 0 {
			a, b := rec.Horizon[i-1].Position(), wp.Position()
			acc += math.Hypot(b.X-a.X, b.Y-a.Y)
		}
		if acc >= lookahead {
			aim = wp
			break
		}
	}
	p := aim.Position()
	desired := math.Atan2(p.Y-pos.Y, p.X-pos.X)
	e := desired - rec.State.Transform.Heading
	for e > math.Pi {
		e -= 2 * math.Pi
	}
	for e <= -math.Pi {
		e += 2 * math.Pi
	}
	return e
}
