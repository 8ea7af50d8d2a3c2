package trafficmanager

import (
	"math"
	"sync/atomic"
	"time"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/parallel"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/entity"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/roadmap"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/config"
)

const (
	laneHalfWidth    = 2.0 // 同车道判定的横向半宽（米）
	neighborOffset   = 3.5 // 相邻车道中心线的横向偏移估计（米）
	slowAheadRatio   = 0.9 // 前车速度低于本车该比例时视为阻挡
	clearBehind      = 8.0 // 变道目标车道后方需要的净空（米）
)

// localizationStage 定位阶段
// 功能：每个epoch为每辆注册车辆刷新运动学状态并维护前向航点视野，
// 处理自动/强制变道，向碰撞检测、信控、运动规划三个下游各发一帧
// 说明：actorRecord的state/horizon字段由本阶段独占写入
type localizationStage struct {
	sim      entity.IActorQuery
	roadMap  *roadmap.Map
	registry *Registry
	params   *Parameters
	cfg      *config.RuntimeConfig

	outCollision *Messenger[LocalizationRecord]
	outLight     *Messenger[LocalizationRecord]
	outPlanner   *Messenger[LocalizationRecord]

	stop     <-chan struct{}
	syncMode *atomic.Bool
	tickReq  <-chan struct{}

	epoch uint64
}

// run 阶段主循环
// 算法说明：
// 1. 同步模式下等待tick授权，异步模式下按epoch间隔自走
// 2. epoch边界应用注册表增量，取得本epoch的成员切片
// 3. 两遍并行处理：先刷新全部状态，再维护视野与变道
//    （第二遍可安全读取任意车辆第一遍写好的状态）
// 4. 组帧下发，注销模拟中已消失的车辆
func (s *localizationStage) run() {
	interval := time.Duration(s.cfg.Interval * float64(time.Second))
	for {
		if s.syncMode.Load() {
			select {
			case <-s.tickReq:
			case <-s.stop:
				return
			}
		} else {
			select {
			case <-time.After(interval):
			case <-s.stop:
				return
			}
		}
		s.epoch++
		s.registry.Prepare()
		records := s.registry.Data()

		// 第一遍：刷新状态
		parallel.GoFor(records, func(rec *actorRecord) {
			state, err := s.sim.ActorState(rec.id)
			if err != nil {
				// 瞬时查询失败：本epoch沿用最近一次的状态
				log.Debugf("localization: actor %d state query failed: %v", rec.id, err)
				return
			}
			rec.state = state
			rec.hasState = true
		})

		// 第二遍：视野维护与变道
		parallel.GoFor(records, func(rec *actorRecord) {
			if !rec.hasState || !rec.state.Alive {
				return
			}
			s.updateHorizon(rec)
			if len(rec.horizon) > 0 {
				s.planLaneChange(rec, records)
			}
		})

		// 组帧
		data := make([]LocalizationRecord, 0, len(records))
		var dead []entity.ActorID
		for _, rec := range records {
			if rec.hasState && !rec.state.Alive {
				dead = append(dead, rec.id)
				continue
			}
			if !rec.hasState || len(rec.horizon) == 0 {
				continue
			}
			data = append(data, LocalizationRecord{
				ID:      rec.id,
				State:   rec.state,
				Horizon: rec.horizon,
			})
		}
		f := Frame[LocalizationRecord]{Epoch: s.epoch, Data: data}
		if !s.outCollision.Send(f) && s.outCollision.Stopped() {
			return
		}
		if !s.outLight.Send(f) && s.outLight.Stopped() {
			return
		}
		if !s.outPlanner.Send(f) && s.outPlanner.Stopped() {
			return
		}

		// 模拟报告车辆消失：自动注销
		for _, id := range dead {
			log.Infof("localization: actor %d gone from simulation, unregister", id)
			s.registry.Remove(id)
			s.params.RemoveActor(id)
		}
	}
}

// updateHorizon 维护滚动航点视野
// 算法说明：
// 1. 丢弃已越过（位于车头朝向后方）的航点，复用未过期后缀
// 2. 视野头部偏离超过阈值则认定脱离规划路径，整体重建（最近航点重吸附）
// 3. 沿路网前向扩展，使视野始终覆盖固定前向距离；
//    路口分叉用本车种子随机数选择，保证可复现
func (s *localizationStage) updateHorizon(rec *actorRecord) {
	pos := rec.state.Transform.Position
	heading := rec.state.Transform.Heading
	for len(rec.horizon) > 0 {
		wp := rec.horizon[0].Position()
		ahead := (wp.X-pos.X)*math.Cos(heading) + (wp.Y-pos.Y)*math.Sin(heading)
		if ahead > 0 {
			break
		}
		rec.horizon = rec.horizon[1:]
	}
	if len(rec.horizon) > 0 {
		head := rec.horizon[0].Position()
		if math.Hypot(head.X-pos.X, head.Y-pos.Y) > s.cfg.DeviationThreshold {
			rec.horizon = nil
		}
	}
	if len(rec.horizon) == 0 {
		wp := s.roadMap.NearestWaypoint(pos)
		if wp == nil {
			return
		}
		rec.horizon = []*roadmap.Waypoint{wp}
	}
	s.extendHorizon(rec)
}

// extendHorizon 将视野补齐到目标前向距离
func (s *localizationStage) extendHorizon(rec *actorRecord) {
	target := math.Max(s.cfg.HorizonMinDistance, rec.state.Speed()*s.cfg.HorizonTimeFactor)
	span := horizonSpan(rec.horizon)
	if span >= target {
		return
	}
	last := rec.horizon[len(rec.horizon)-1]
	ext := s.roadMap.Successors(last, target-span, func(n int) int {
		return rec.generator.IntnSafe(n)
	})
	rec.horizon = append(rec.horizon, ext...)
}

// rebuildFrom 从指定航点重建视野（变道落点）
func (s *localizationStage) rebuildFrom(rec *actorRecord, wp *roadmap.Waypoint) {
	rec.horizon = []*roadmap.Waypoint{wp}
	s.extendHorizon(rec)
}

// planLaneChange 变道决策
// 说明：强制变道是一次性请求，绕过占用检查；
// 自动变道是每epoch的站立式评估：前方有明显慢车且邻道净空足够才切换
func (s *localizationStage) planLaneChange(rec *actorRecord, records []*actorRecord) {
	if d := s.params.ConsumeForceLaneChange(rec.id); d != entity.LaneChangeNone {
		if nb := rec.horizon[0].Neighbor(d.Side()); nb != nil {
			s.rebuildFrom(rec, nb)
		} else {
			log.Debugf("localization: actor %d force lane change %v has no neighbor lane", rec.id, d)
		}
		return
	}
	if !s.params.AutoLaneChange(rec.id) {
		return
	}
	blockDist := math.Max(2*s.params.DistanceToLeading(rec.id), 10)
	aheadV, aheadDist := s.findAhead(rec, records, blockDist)
	if aheadDist < 0 || aheadV >= rec.state.Speed()*slowAheadRatio {
		return
	}
	for _, side := range [2]int{entity.LEFT, entity.RIGHT} {
		nb := rec.horizon[0].Neighbor(side)
		if nb == nil {
			continue
		}
		if s.laneClear(rec, records, side, blockDist) {
			s.rebuildFrom(rec, nb)
			return
		}
	}
}

// findAhead 在本车道前方查找最近车辆
// 返回：前车速度与距离，不存在时距离为-1
// 说明：只读取第一遍刷新过的状态，不触碰其他车辆的视野
func (s *localizationStage) findAhead(rec *actorRecord, records []*actorRecord, maxDist float64) (v, dist float64) {
	dist = -1
	for _, other := range records {
		if other.id == rec.id || !other.hasState || !other.state.Alive {
			continue
		}
		longit, lat := relativePosition(rec.state.Transform, other.state.Transform.Position)
		if longit <= 0 || longit > maxDist || math.Abs(lat) > laneHalfWidth {
			continue
		}
		if dist < 0 || longit < dist {
			dist = longit
			v = other.state.Speed()
		}
	}
	return
}

// laneClear 检查相邻车道在变道窗口内是否净空
func (s *localizationStage) laneClear(rec *actorRecord, records []*actorRecord, side int, clearAhead float64) bool {
	offset := neighborOffset
	if side == entity.RIGHT {
		offset = -neighborOffset
	}
	for _, other := range records {
		if other.id == rec.id || !other.hasState || !other.state.Alive {
			continue
		}
		longit, lat := relativePosition(rec.state.Transform, other.state.Transform.Position)
		if math.Abs(lat-offset) > laneHalfWidth {
			continue
		}
		if longit > -clearBehind && longit < clearAhead {
			return false
		}
	}
	return true
}

// relativePosition 把目标位置转到本车车体系
// 返回：longit-纵向（车头为正），lat-横向（左侧为正）
func relativePosition(t entity.Transform, pos geometry.Point) (longit, lat float64) {
	dx := pos.X - t.Position.X
	dy := pos.Y - t.Position.Y
	sin, cos := math.Sincos(t.Heading)
	longit = dx*cos + dy*sin
	lat = -dx*sin + dy*cos
	return
}

// horizonSpan 视野覆盖的前向距离
func horizonSpan(horizon []*roadmap.Waypoint) float64 {
	span := 0.0
	for i := 0; i+1 < len(horizon); i++ {
		a, b := horizon[i].Position(), horizon[i+1].Position()
		span += math.Hypot(b.X-a.X, b.Y-a.Y)
	}
	return span
}
