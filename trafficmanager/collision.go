package trafficmanager

import (
	"math"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/entity"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/roadmap"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/config"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/container"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/randengine"
)

const (
	minConflictSpeed = 0.1 // 冲突时间计算的速度下限（米/秒），避免除零
)

// collisionStage 碰撞检测阶段
// 功能：每个epoch对视野在空间上交叠的车辆对做全量裁定，
// 产出让行判决（无危险/必须让行+阻挡车辆）
// 说明：判决不携带跨epoch状态；豁免对与忽略概率来自参数存储
type collisionStage struct {
	registry *Registry
	params   *Parameters
	cfg      *config.RuntimeConfig
	draw     randengine.Draw

	in  *Messenger[LocalizationRecord]
	out *Messenger[HazardRecord]
}

// conflict 一次候选冲突
type conflict struct {
	other    entity.ActorID
	distance float64 // 本车沿视野到冲突点的距离
}

// run 阶段主循环
func (s *collisionStage) run() {
	for {
		f, ok := s.in.Receive()
		if !ok {
			if s.in.Stopped() {
				return
			}
			continue // 有界等待到期，上游慢，重试
		}
		out := parallel.GoMap(f.Data, func(rec LocalizationRecord) HazardRecord {
			return s.judge(rec, f.Data)
		})
		if !s.out.Send(Frame[HazardRecord]{Epoch: f.Epoch, Data: out}) && s.out.Stopped() {
			return
		}
	}
}

// judge 对单个车辆做让行裁定
// 算法说明：
// 1. 逐一检查其他车辆：豁免对跳过；忽略概率抽签命中则本epoch跳过
// 2. 视野几何相交（最近航点对距离小于安全半径）才构成候选
// 3. 以到冲突点的时间定路权：冲突时间大者让行，持平时ID大者让行
// 4. 候选按冲突时间入小堆，堆顶即本epoch的让行对象
func (s *collisionStage) judge(rec LocalizationRecord, all []LocalizationRecord) HazardRecord {
	verdict := HazardRecord{ID: rec.ID}
	engine := s.registry.Engine(rec.ID)
	ignorePct := s.params.IgnoreActorsPct(rec.ID)
	pq := container.NewPriorityQueue[conflict]()
	for i := range all {
		other := &all[i]
		if other.ID == rec.ID {
			continue
		}
		if s.params.CollisionDisabled(rec.ID, other.ID) {
			continue
		}
		if engine != nil && ignorePct > 0 && s.draw(engine, ignorePct/100) {
			continue
		}
		dSelf, dOther, ok := horizonConflict(rec.Horizon, other.Horizon, s.cfg.SafetyRadius)
		if !ok {
			continue
		}
		ttcSelf := dSelf / math.Max(rec.State.Speed(), minConflictSpeed)
		ttcOther := dOther / math.Max(other.State.Speed(), minConflictSpeed)
		if ttcSelf < ttcOther || (ttcSelf == ttcOther && rec.ID < other.ID) {
			// 本车路权更高，由对方让行
			continue
		}
		pq.HeapPush(conflict{other: other.ID, distance: dSelf}, ttcSelf)
	}
	if pq.Len() > 0 {
		c := pq.First()
		verdict.MustYield = true
		verdict.Blocking = c.other
		verdict.Distance = c.distance
	}
	return verdict
}

// horizonConflict 扫描两条视野，找最近的空间交叠点
// 返回：双方各自到冲突点的沿线距离；ok为false表示无交叠
// 算法说明：对两条视野的航点做逐对距离检查，取本车沿线距离最小的
// 交叠对；视野长度有界（几十个航点），逐对检查代价可接受
func horizonConflict(a, b []*roadmap.Waypoint, radius float64) (dA, dB float64, ok bool) {
	bestA := math.Inf(0)
	sA := 0.0
	for i, wa := range a {
		if i > 0 {
			pa, pb := a[i-1].Position(), wa.Position()
			sA += math.Hypot(pb.X-pa.X, pb.Y-pa.Y)
		}
		if sA >= bestA {
			break
		}
		sB := 0.0
		for j, wb := range b {
			if j > 0 {
				pa, pb := b[j-1].Position(), wb.Position()
				sB += math.Hypot(pb.X-pa.X, pb.Y-pa.Y)
			}
			pa, pb := wa.Position(), wb.Position()
			if math.Hypot(pb.X-pa.X, pb.Y-pa.Y) < radius {
				if sA < bestA {
					bestA = sA
					dA, dB = sA, sB
					ok = true
				}
				break
			}
		}
	}
	return
}
