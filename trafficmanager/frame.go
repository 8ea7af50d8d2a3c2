package trafficmanager

import (
	"github.com/tsinghua-fib-lab/trafficmanager-oss/entity"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/roadmap"
)

// 阶段间帧类型。
// 每个epoch，上游阶段为当前注册车辆各产生一条记录，
// 打包为一帧经messenger交给下游。

// LocalizationRecord 定位阶段对单个车辆的输出
type LocalizationRecord struct {
	ID      entity.ActorID
	State   entity.ActorState  // 本epoch的运动学快照
	Horizon []*roadmap.Waypoint // 前向航点视野，只读共享给下游
}

// HazardRecord 碰撞检测阶段对单个车辆的裁定
// 说明：每个epoch全量重算，不携带跨epoch状态
type HazardRecord struct {
	ID        entity.ActorID
	MustYield bool           // 是否必须让行
	Blocking  entity.ActorID // 让行对象（MustYield时有效）
	Distance  float64        // 沿视野到冲突点的距离（米）
}

// LightRecord 信控阶段对单个车辆的输出
type LightRecord struct {
	ID       entity.ActorID
	LightID  int32             // 管控信号灯ID，0表示前方无信控
	State    entity.LightState // 信号灯当前状态
	Distance float64           // 沿视野到停车线的距离（米）
}

// CommandRecord 运动规划阶段对单个车辆的控制输出
type CommandRecord struct {
	ID      entity.ActorID
	Command entity.ControlCommand
}
