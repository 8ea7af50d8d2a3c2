package trafficmanager

import (
	"sync"

	"github.com/tsinghua-fib-lab/trafficmanager-oss/entity"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/config"
)

// ParameterRecord 单个车辆的行为调优记录
// 说明：记录不可变，写入采用复制-替换，读者不会观察到半写状态；
// 指针字段为nil表示该项未覆盖，回退到全局默认值
type ParameterRecord struct {
	SpeedDifference   *float64 // 相对限速的速度差百分比
	AutoLaneChange    *bool    // 自动变道开关
	DistanceToLeading *float64 // 期望跟车距离（米）
	IgnoreActorsPct   *float64 // 忽略其他车辆的概率（百分比）
	RunLightPct       *float64 // 闯红灯概率（百分比）
}

// clone 复制记录，写入前调用
func (p *ParameterRecord) clone() *ParameterRecord {
	c := *p
	return &c
}

// pairKey 无序车辆对，小ID在前保证对称性
type pairKey struct {
	A, B entity.ActorID
}

func newPairKey(a, b entity.ActorID) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{A: a, B: b}
}

// Parameters 参数存储
// 功能：车辆ID到行为调优记录的并发KV存储，附带全局默认记录
// 说明：读多写少；各阶段在每个epoch开始时读取最新值。
// 单车记录不会静默过期，只在车辆注销时随之删除
type Parameters struct {
	cfg *config.RuntimeConfig

	mtx        sync.RWMutex
	global     *ParameterRecord                              // 全局默认记录（同样复制-替换）
	perActor   map[entity.ActorID]*ParameterRecord           // 单车覆盖
	exceptions map[pairKey]struct{}                          // 碰撞检测豁免对（对称）
	forceLC    map[entity.ActorID]entity.LaneChangeDirection // 一次性强制变道请求
}

// NewParameters 创建参数存储
// 说明：内置默认值来自运行时配置
func NewParameters(cfg *config.RuntimeConfig) *Parameters {
	speedDiff := cfg.SpeedDifference
	autoLC := true
	distance := cfg.DistanceToLeading
	zero := 0.0
	zero2 := 0.0
	return &Parameters{
		cfg: cfg,
		global: &ParameterRecord{
			SpeedDifference:   &speedDiff,
			AutoLaneChange:    &autoLC,
			DistanceToLeading: &distance,
			IgnoreActorsPct:   &zero,
			RunLightPct:       &zero2,
		},
		perActor:   make(map[entity.ActorID]*ParameterRecord),
		exceptions: make(map[pairKey]struct{}),
		forceLC:    make(map[entity.ActorID]entity.LaneChangeDirection),
	}
}

// mutate 复制-替换地修改单车记录
func (p *Parameters) mutate(id entity.ActorID, f func(r *ParameterRecord)) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	r, ok := p.perActor[id]
	if !ok {
		r = &ParameterRecord{}
	}
	c := r.clone()
	f(c)
	p.perActor[id] = c
}

// mutateGlobal 复制-替换地修改全局记录
func (p *Parameters) mutateGlobal(f func(r *ParameterRecord)) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	c := p.global.clone()
	f(c)
	p.global = c
}

// SetSpeedDifference 设置单车速度差百分比
func (p *Parameters) SetSpeedDifference(id entity.ActorID, pct float64) {
	p.mutate(id, func(r *ParameterRecord) { r.SpeedDifference = &pct })
}

// SetGlobalSpeedDifference 设置全局速度差百分比
func (p *Parameters) SetGlobalSpeedDifference(pct float64) {
	p.mutateGlobal(func(r *ParameterRecord) { r.SpeedDifference = &pct })
}

// SetAutoLaneChange 设置单车自动变道开关
func (p *Parameters) SetAutoLaneChange(id entity.ActorID, enabled bool) {
	p.mutate(id, func(r *ParameterRecord) { r.AutoLaneChange = &enabled })
}

// SetDistanceToLeading 设置单车期望跟车距离
func (p *Parameters) SetDistanceToLeading(id entity.ActorID, distance float64) {
	p.mutate(id, func(r *ParameterRecord) { r.DistanceToLeading = &distance })
}

// SetIgnoreActorsPct 设置单车忽略其他车辆的概率
func (p *Parameters) SetIgnoreActorsPct(id entity.ActorID, pct float64) {
	p.mutate(id, func(r *ParameterRecord) { r.IgnoreActorsPct = &pct })
}

// SetRunLightPct 设置单车闯红灯概率
func (p *Parameters) SetRunLightPct(id entity.ActorID, pct float64) {
	p.mutate(id, func(r *ParameterRecord) { r.RunLightPct = &pct })
}

// SetCollisionDetection 设置车辆对之间的碰撞检测开关
// 说明：enabled=false加入豁免集合，true移除；集合对(a,b)与(b,a)对称
func (p *Parameters) SetCollisionDetection(a, b entity.ActorID, enabled bool) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	key := newPairKey(a, b)
	if enabled {
		delete(p.exceptions, key)
	} else {
		p.exceptions[key] = struct{}{}
	}
}

// CollisionDisabled 车辆对是否豁免碰撞检测
func (p *Parameters) CollisionDisabled(a, b entity.ActorID) bool {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	_, ok := p.exceptions[newPairKey(a, b)]
	return ok
}

// SetForceLaneChange 记录一次性强制变道请求，覆盖未消费的旧请求
func (p *Parameters) SetForceLaneChange(id entity.ActorID, direction entity.LaneChangeDirection) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if direction == entity.LaneChangeNone {
		delete(p.forceLC, id)
		return
	}
	p.forceLC[id] = direction
}

// ConsumeForceLaneChange 取出并清除强制变道请求（一次性语义）
func (p *Parameters) ConsumeForceLaneChange(id entity.ActorID) entity.LaneChangeDirection {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	d, ok := p.forceLC[id]
	if !ok {
		return entity.LaneChangeNone
	}
	delete(p.forceLC, id)
	return d
}

// RemoveActor 删除车辆的所有覆盖记录与豁免对，注销时调用
func (p *Parameters) RemoveActor(id entity.ActorID) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	delete(p.perActor, id)
	delete(p.forceLC, id)
	for key := range p.exceptions {
		if key.A == id || key.B == id {
			delete(p.exceptions, key)
		}
	}
}

// resolve 读取解析链：单车覆盖 → 全局记录
// 说明：全局记录在构造时已填满内置默认值，链条必然终止
func resolve[T any](p *Parameters, id entity.ActorID, field func(r *ParameterRecord) *T) T {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	if r, ok := p.perActor[id]; ok {
		if v := field(r); v != nil {
			return *v
		}
	}
	return *field(p.global)
}

// SpeedDifference 解析车辆的速度差百分比
func (p *Parameters) SpeedDifference(id entity.ActorID) float64 {
	return resolve(p, id, func(r *ParameterRecord) *float64 { return r.SpeedDifference })
}

// AutoLaneChange 解析车辆的自动变道开关
func (p *Parameters) AutoLaneChange(id entity.ActorID) bool {
	return resolve(p, id, func(r *ParameterRecord) *bool { return r.AutoLaneChange })
}

// DistanceToLeading 解析车辆的期望跟车距离
func (p *Parameters) DistanceToLeading(id entity.ActorID) float64 {
	return resolve(p, id, func(r *ParameterRecord) *float64 { return r.DistanceToLeading })
}

// IgnoreActorsPct 解析车辆忽略其他车辆的概率
func (p *Parameters) IgnoreActorsPct(id entity.ActorID) float64 {
	return resolve(p, id, func(r *ParameterRecord) *float64 { return r.IgnoreActorsPct })
}

// RunLightPct 解析车辆的闯红灯概率
func (p *Parameters) RunLightPct(id entity.ActorID) float64 {
	return resolve(p, id, func(r *ParameterRecord) *float64 { return r.RunLightPct })
}
