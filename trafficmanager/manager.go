package trafficmanager

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/clock"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/entity"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/roadmap"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/config"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/randengine"
)

// 管理器生命周期状态
const (
	statusStopped int32 = iota
	statusStarting
	statusRunning
	statusStopping
)

// Option Manager的可选配置项
type Option func(m *Manager)

// WithDraw 替换概率抽签实现，测试中注入确定性抽签
func WithDraw(d randengine.Draw) Option {
	return func(m *Manager) { m.draw = d }
}

// Manager 交通管理器
// 功能：装配并编排四阶段流水线（定位→碰撞检测/信控→运动规划→批量
// 控制），对外提供注册、参数调优、信号灯重置与同步tick的API
// 说明：API方法可从任意goroutine并发调用；阶段goroutine只在
// Start/Stop之间存活，messenger与stop通道每次Start重建
type Manager struct {
	sim  entity.ISimulation
	cfg  *config.RuntimeConfig
	clk  *clock.Clock
	draw randengine.Draw

	roadMap  *roadmap.Map
	registry *Registry
	params   *Parameters

	status   atomic.Int32
	syncMode atomic.Bool

	mtx      sync.Mutex // 保护Start/Stop的装配过程
	stopCh   chan struct{}
	wg       sync.WaitGroup
	tickReq  chan struct{}
	tickDone chan struct{}

	lights *trafficLightStage // 冻结确认轮询入口，Start时装配
}

var _ entity.ITrafficManager = (*Manager)(nil)

// New 创建交通管理器
// 算法说明：
// 1. 校验配置并固化为运行时配置
// 2. 向外部模拟拉取全量车道描述，构建本地路网索引
func New(sim entity.ISimulation, c config.Config, opts ...Option) (*Manager, error) {
	cfg, err := config.NewRuntimeConfig(c)
	if err != nil {
		return nil, err
	}
	lanes := lo.Map(sim.NetworkDescription(), func(l *entity.LaneDescription, _ int) *roadmap.LaneInput {
		return &roadmap.LaneInput{
			ID:          l.ID,
			CenterLine:  l.CenterLine,
			MaxV:        l.MaxV,
			InJunction:  l.InJunction,
			LightID:     l.LightID,
			LeftLaneID:  l.LeftLaneID,
			RightLaneID: l.RightLaneID,
			Successors:  l.Successors,
		}
	})
	roadMap, err := roadmap.Build(lanes, cfg.WaypointResolution)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		sim:      sim,
		cfg:      cfg,
		clk:      clock.New(cfg.Interval),
		draw:     randengine.PTrueDraw,
		roadMap:  roadMap,
		registry: NewRegistry(),
		params:   NewParameters(cfg),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.syncMode.Store(c.Control.Synchronous)
	log.Infof("manager: road map built with %d waypoints from %d lanes",
		roadMap.WaypointCount(), len(lanes))
	return m, nil
}

// Clock 流水线时钟（只读使用）
func (m *Manager) Clock() *clock.Clock {
	return m.clk
}

// Start 装配messenger与各阶段并启动流水线
// 说明：Running状态下重复调用返回error；Stop之后可再次Start
func (m *Manager) Start() error {
	if !m.status.CompareAndSwap(statusStopped, statusStarting) {
		return fmt.Errorf("manager: start called in status %d", m.status.Load())
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.stopCh = make(chan struct{})
	m.tickReq = make(chan struct{})
	m.tickDone = make(chan struct{})
	timeout := time.Duration(m.cfg.Timeout * float64(time.Second))

	locToCollision := NewMessenger[LocalizationRecord](m.stopCh, timeout)
	locToLight := NewMessenger[LocalizationRecord](m.stopCh, timeout)
	locToPlanner := NewMessenger[LocalizationRecord](m.stopCh, timeout)
	collisionToPlanner := NewMessenger[HazardRecord](m.stopCh, timeout)
	lightToPlanner := NewMessenger[LightRecord](m.stopCh, timeout)
	plannerToBatch := NewMessenger[CommandRecord](m.stopCh, timeout)

	localization := &localizationStage{
		sim:          m.sim,
		roadMap:      m.roadMap,
		registry:     m.registry,
		params:       m.params,
		cfg:          m.cfg,
		outCollision: locToCollision,
		outLight:     locToLight,
		outPlanner:   locToPlanner,
		stop:         m.stopCh,
		syncMode:     &m.syncMode,
		tickReq:      m.tickReq,
	}
	collision := &collisionStage{
		registry: m.registry,
		params:   m.params,
		cfg:      m.cfg,
		draw:     m.draw,
		in:       locToCollision,
		out:      collisionToPlanner,
	}
	m.lights = &trafficLightStage{
		sim:  m.sim,
		in:   locToLight,
		out:  lightToPlanner,
		stop: m.stopCh,
	}
	planner := &plannerStage{
		params:   m.params,
		cfg:      m.cfg,
		clk:      m.clk,
		reg:      m.registry,
		draw:     m.draw,
		in:       locToPlanner,
		inHazard: collisionToPlanner,
		inLight:  lightToPlanner,
		out:      plannerToBatch,
		syncMode: &m.syncMode,
	}
	batch := &batchControlStage{
		sim:      m.sim,
		registry: m.registry,
		clk:      m.clk,
		in:       plannerToBatch,
		syncMode: &m.syncMode,
		tickDone: m.tickDone,
		stop:     m.stopCh,
	}

	m.spawn("localization", localization.run)
	m.spawn("collision", collision.run)
	m.spawn("trafficlight", m.lights.run)
	m.spawn("planner", planner.run)
	m.spawn("batchcontrol", batch.run)

	m.status.Store(statusRunning)
	log.Infof("manager: pipeline started, interval=%.3fs, synchronous=%v",
		m.cfg.Interval, m.syncMode.Load())
	return nil
}

// spawn 启动单个阶段goroutine
// 说明：阶段panic不会静默吞掉——记录日志后整条流水线中止，
// 后续SynchronousTick返回false，Start可重试
func (m *Manager) spawn(name string, f func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("manager: stage %s panicked: %v\n%s", name, r, debug.Stack())
				go m.abort()
			}
		}()
		f()
	}()
}

// abort panic后的中止路径
// 说明：panic可能发生在Start标记Running之前，此时Stop的状态
// 交换不成立；等Starting结束后再停，已停则直接返回
func (m *Manager) abort() {
	for {
		switch m.status.Load() {
		case statusRunning:
			m.Stop()
			return
		case statusStopped, statusStopping:
			return
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

// Stop 停止流水线并等待所有阶段退出
// 说明：可从任意状态调用，非Running状态下为空操作；
// 阶段的有界等待保证Stop不会被阻塞的上下游卡死
func (m *Manager) Stop() {
	if !m.status.CompareAndSwap(statusRunning, statusStopping) {
		return
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	close(m.stopCh)
	m.wg.Wait()
	m.status.Store(statusStopped)
	log.Infof("manager: pipeline stopped at epoch %d", m.clk.Epoch())
}

// RegisterVehicles 注册车辆（幂等）
func (m *Manager) RegisterVehicles(ids []entity.ActorID) {
	added := 0
	for _, id := range ids {
		if m.registry.Add(id) {
			added++
		}
	}
	log.Debugf("manager: register %d vehicles (%d new)", len(ids), added)
}

// UnregisterVehicles 注销车辆（幂等），同时清理其参数覆盖
func (m *Manager) UnregisterVehicles(ids []entity.ActorID) {
	for _, id := range ids {
		if m.registry.Remove(id) {
			m.params.RemoveActor(id)
		}
	}
}

// GetRegisteredVehiclesIDs 当前注册车辆ID快照
func (m *Manager) GetRegisteredVehiclesIDs() []entity.ActorID {
	return m.registry.IDs()
}

// SetPercentageSpeedDifference 设置单车相对限速的速度差百分比
func (m *Manager) SetPercentageSpeedDifference(id entity.ActorID, pct float64) error {
	if err := config.CheckPercentage(pct); err != nil {
		return err
	}
	m.params.SetSpeedDifference(id, pct)
	return nil
}

// SetGlobalPercentageSpeedDifference 设置全局速度差百分比
func (m *Manager) SetGlobalPercentageSpeedDifference(pct float64) error {
	if err := config.CheckPercentage(pct); err != nil {
		return err
	}
	m.params.SetGlobalSpeedDifference(pct)
	return nil
}

// SetCollisionDetection 设置车辆对之间的碰撞检测开关（对称）
func (m *Manager) SetCollisionDetection(a, b entity.ActorID, enabled bool) {
	m.params.SetCollisionDetection(a, b, enabled)
}

// SetForceLaneChange 强制变道，一次性请求，绕过安全检查
func (m *Manager) SetForceLaneChange(id entity.ActorID, direction entity.LaneChangeDirection) {
	m.params.SetForceLaneChange(id, direction)
}

// SetAutoLaneChange 自动变道开关
func (m *Manager) SetAutoLaneChange(id entity.ActorID, enabled bool) {
	m.params.SetAutoLaneChange(id, enabled)
}

// SetDistanceToLeadingVehicle 设置期望跟车距离
func (m *Manager) SetDistanceToLeadingVehicle(id entity.ActorID, distance float64) error {
	if distance < 0 {
		return fmt.Errorf("manager: distance to leading vehicle %v is negative", distance)
	}
	m.params.SetDistanceToLeading(id, distance)
	return nil
}

// SetPercentageIgnoreActors 设置忽略其他车辆的概率
func (m *Manager) SetPercentageIgnoreActors(id entity.ActorID, pct float64) error {
	if err := config.CheckPercentage(pct); err != nil {
		return err
	}
	m.params.SetIgnoreActorsPct(id, pct)
	return nil
}

// SetPercentageRunningLight 设置闯红灯概率
func (m *Manager) SetPercentageRunningLight(id entity.ActorID, pct float64) error {
	if err := config.CheckPercentage(pct); err != nil {
		return err
	}
	m.params.SetRunLightPct(id, pct)
	return nil
}

// ResetAllTrafficLights 重置所有信号灯
// 算法说明：
// 1. 按组重置：每组头灯置绿，其余置红，随后全部冻结
// 2. 轮询冻结确认（有界），确认后统一解冻恢复状态机
// 返回：false表示管理器未运行或冻结确认超时（软失败）
func (m *Manager) ResetAllTrafficLights() bool {
	if m.status.Load() != statusRunning {
		log.Warnf("manager: reset traffic lights while not running")
		return false
	}
	lights := m.sim.Lights()
	if len(lights) == 0 {
		return true
	}
	groups := lo.GroupBy(lights, func(l entity.ILight) int32 { return l.GroupID() })
	for _, group := range groups {
		for i, l := range group {
			if i == 0 {
				l.SetState(entity.LightStateGreen)
			} else {
				l.SetState(entity.LightStateRed)
			}
			l.Freeze(true)
		}
	}
	ok := m.lights.CheckAllFrozen(lights)
	if !ok {
		log.Warnf("manager: traffic light freeze not confirmed, groups=%d", len(groups))
	}
	for _, l := range lights {
		l.Freeze(false)
	}
	return ok
}

// SetSynchronousMode 设置同步执行模式
// 说明：运行中切换时自下一个epoch生效
func (m *Manager) SetSynchronousMode(enabled bool) {
	m.syncMode.Store(enabled)
	log.Infof("manager: synchronous mode = %v", enabled)
}

// SynchronousTick 同步模式下推进一个完整epoch
// 说明：向定位阶段发放tick授权，阻塞直到批量控制阶段报告完成；
// 管理器停止或未处于同步运行状态时返回false
func (m *Manager) SynchronousTick() bool {
	if m.status.Load() != statusRunning || !m.syncMode.Load() {
		return false
	}
	select {
	case m.tickReq <- struct{}{}:
	case <-m.stopCh:
		return false
	}
	select {
	case <-m.tickDone:
		return true
	case <-m.stopCh:
		return false
	}
}
