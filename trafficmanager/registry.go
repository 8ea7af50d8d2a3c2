package trafficmanager

import (
	"sync"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/entity"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/roadmap"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/container"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/randengine"
)

// actorRecord 单个注册车辆的管理器内部状态
// 说明：state/horizon等字段只由定位阶段写入（见各字段注释），
// 其他阶段通过帧获得数据，避免跨阶段并发写同一字段
type actorRecord struct {
	container.IncrementalItemBase

	id        entity.ActorID
	generator *randengine.Engine // 概率抽签引擎，注册时以ID为种子创建

	// 以下字段由定位阶段独占维护

	state    entity.ActorState   // 最近一次成功查询到的状态
	hasState bool                // 是否已有有效状态
	horizon  []*roadmap.Waypoint // 当前航点视野
}

// Registry 车辆注册表
// 功能：并发安全的注册车辆集合
// 说明：API线程的Add/Remove立即反映到成员查询（Contains/IDs），
// 但阶段遍历用的切片只在epoch边界（Prepare）更新——
// epoch中途注册的车辆是否参与当前epoch是允许的非确定性
type Registry struct {
	records map[entity.ActorID]*actorRecord
	arr     *container.IncrementalArray[*actorRecord]
	mtx     sync.RWMutex
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[entity.ActorID]*actorRecord),
		arr:     container.NewIncrementalArray[*actorRecord](),
	}
}

// Add 注册车辆（幂等）
// 返回：true表示新注册，false表示已存在
func (r *Registry) Add(id entity.ActorID) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if _, ok := r.records[id]; ok {
		return false
	}
	rec := &actorRecord{
		id:        id,
		generator: randengine.New(uint64(id)),
	}
	r.records[id] = rec
	r.arr.Add(rec)
	return true
}

// Remove 注销车辆（幂等）
// 返回：true表示确有删除，false表示本就不存在
func (r *Registry) Remove(id entity.ActorID) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return false
	}
	delete(r.records, id)
	r.arr.Remove(rec)
	return true
}

// Contains 车辆是否已注册
func (r *Registry) Contains(id entity.ActorID) bool {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	_, ok := r.records[id]
	return ok
}

// Engine 获取车辆的随机数引擎，未注册返回nil
func (r *Registry) Engine(id entity.ActorID) *randengine.Engine {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if rec, ok := r.records[id]; ok {
		return rec.generator
	}
	return nil
}

// IDs 当前成员ID快照（含未应用到阶段切片的增量）
func (r *Registry) IDs() []entity.ActorID {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return lo.Keys(r.records)
}

// Len 当前成员数
func (r *Registry) Len() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return len(r.records)
}

// Prepare 在epoch边界应用挂起的注册/注销
// 说明：只能由定位阶段在每个epoch开始时调用
func (r *Registry) Prepare() {
	r.arr.Prepare()
}

// Data 阶段遍历用的记录切片，仅在Prepare时变化
func (r *Registry) Data() []*actorRecord {
	return r.arr.Data()
}
