// 内置运动学世界：entity.ISimulation的进程内实现，
// 供演示入口与流水线测试使用，不做碰撞物理。
package local

import (
	"fmt"
	"math"
	"sync"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/entity"
)

var log = logrus.WithField("module", "local")

// 运动学积分参数
const (
	maxAccel  = 3.0 // 满油门加速度（米/秒²）
	maxBrake  = 8.0 // 满刹车减速度（米/秒²）
	steerRate = 1.2 // 满转向的航向角速度（弧度/秒）
)

// vehicle 点质量车辆
type vehicle struct {
	id    entity.ActorID
	state entity.ActorState
}

// World 内置世界
// 功能：持有车道、车辆与信号灯，按批量指令做点质量积分
// 说明：ApplyBatch是世界时间推进的唯一入口，
// 信号灯状态机随批量下发同步步进
type World struct {
	dt    float64
	lanes []*entity.LaneDescription

	mtx      sync.RWMutex
	vehicles map[entity.ActorID]*vehicle
	lights   map[int32]*Light
}

var _ entity.ISimulation = (*World)(nil)

// NewWorld 创建内置世界
// 参数：dt-每批指令对应的时间步长（秒），应与管理器的epoch间隔一致
func NewWorld(dt float64, lanes []*entity.LaneDescription) *World {
	return &World{
		dt:       dt,
		lanes:    lanes,
		vehicles: make(map[entity.ActorID]*vehicle),
		lights:   make(map[int32]*Light),
	}
}

// AddVehicle 放置车辆
func (w *World) AddVehicle(id entity.ActorID, pos geometry.Point, heading, speedLimit float64) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	w.vehicles[id] = &vehicle{
		id: id,
		state: entity.ActorState{
			Transform:  entity.Transform{Position: pos, Heading: heading},
			SpeedLimit: speedLimit,
			Alive:      true,
		},
	}
}

// RemoveVehicle 将车辆标记为消失（Alive=false）
func (w *World) RemoveVehicle(id entity.ActorID) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	if v, ok := w.vehicles[id]; ok {
		v.state.Alive = false
	}
}

// AddLight 放置信号灯
// 参数：cycle-红/绿各自持续的步数，0表示状态恒定不切换
func (w *World) AddLight(id, groupID int32, initial entity.LightState, cycle int) *Light {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	l := &Light{id: id, groupID: groupID, state: initial, cycle: cycle}
	w.lights[id] = l
	return l
}

// ActorState 查询车辆状态
func (w *World) ActorState(id entity.ActorID) (entity.ActorState, error) {
	w.mtx.RLock()
	defer w.mtx.RUnlock()
	v, ok := w.vehicles[id]
	if !ok {
		return entity.ActorState{}, fmt.Errorf("local: no vehicle %d", id)
	}
	return v.state, nil
}

// Light 查找信号灯
func (w *World) Light(id int32) (entity.ILight, error) {
	w.mtx.RLock()
	defer w.mtx.RUnlock()
	l, ok := w.lights[id]
	if !ok {
		return nil, fmt.Errorf("local: no light %d", id)
	}
	return l, nil
}

// Lights 获取所有信号灯
func (w *World) Lights() []entity.ILight {
	w.mtx.RLock()
	defer w.mtx.RUnlock()
	return lo.MapToSlice(w.lights, func(_ int32, l *Light) entity.ILight { return l })
}

// ApplyBatch 下发一批控制指令并推进世界一个时间步
// 算法说明：
// 1. 油门/刹车合成纵向加速度，速度不倒车（截断到0）
// 2. 转向按满舵角速度缩放，直接作用于航向角
// 3. 沿新航向做一阶积分更新位置
// 4. 信号灯状态机步进一格
func (w *World) ApplyBatch(commands map[entity.ActorID]entity.ControlCommand) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	for id, cmd := range commands {
		v, ok := w.vehicles[id]
		if !ok || !v.state.Alive {
			log.Debugf("local: command for unknown vehicle %d dropped", id)
			continue
		}
		speed := v.state.Speed()
		if cmd.HandBrake {
			speed = 0
		} else {
			speed += (maxAccel*cmd.Throttle - maxBrake*cmd.Brake) * w.dt
			speed = math.Max(speed, 0)
		}
		v.state.Transform.Heading += cmd.Steer * steerRate * w.dt
		sin, cos := math.Sincos(v.state.Transform.Heading)
		v.state.Velocity = geometry.Point{X: speed * cos, Y: speed * sin}
		v.state.Transform.Position.X += v.state.Velocity.X * w.dt
		v.state.Transform.Position.Y += v.state.Velocity.Y * w.dt
	}
	for _, l := range w.lights {
		l.step()
	}
	return nil
}

// NetworkDescription 全量车道描述
func (w *World) NetworkDescription() []*entity.LaneDescription {
	return w.lanes
}
