package entity

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/geometry"
)

// 方位常量
const (
	LEFT  = 0 // 左侧
	RIGHT = 1 // 右侧
)

// ActorID 外部模拟中车辆Actor的唯一标识符
type ActorID int32

// Transform 车辆位姿
// 功能：描述车辆在外部模拟世界坐标系下的位置与朝向
type Transform struct {
	Position geometry.Point // 位置坐标（米）
	Heading  float64        // 朝向角（弧度，atan2约定）
}

func (t Transform) String() string {
	return fmt.Sprintf("Transform{XY=(%.2f,%.2f), Heading=%.3f}", t.Position.X, t.Position.Y, t.Heading)
}

// ActorState 车辆Actor的瞬时状态
// 功能：每个epoch从外部模拟查询得到的车辆运动学快照
type ActorState struct {
	Transform  Transform      // 位姿
	Velocity   geometry.Point // 速度矢量（米/秒）
	SpeedLimit float64        // 当前所在车道限速（米/秒）
	Alive      bool           // Actor是否仍然存在于模拟中
}

// Speed 合速度大小
func (s ActorState) Speed() float64 {
	return math.Hypot(s.Velocity.X, s.Velocity.Y)
}

// ControlCommand 车辆控制指令
// 功能：运动规划阶段对单个车辆产生的控制输出，每个epoch恰好一条
// 说明：油门与刹车均为[0,1]，转向为[-1,1]，由批量控制阶段统一下发
type ControlCommand struct {
	Throttle  float64 // 油门 [0,1]
	Steer     float64 // 转向 [-1,1]
	Brake     float64 // 刹车 [0,1]
	HandBrake bool    // 手刹
}

// LightState 信号灯状态
type LightState int32

const (
	LightStateUnknown LightState = iota // 未知
	LightStateRed                       // 红灯
	LightStateYellow                    // 黄灯
	LightStateGreen                     // 绿灯
	LightStateOff                       // 关闭（无信控）
	LightStateFrozen                    // 冻结（状态保持，重置协议使用）
)

func (s LightState) String() string {
	switch s {
	case LightStateRed:
		return "red"
	case LightStateYellow:
		return "yellow"
	case LightStateGreen:
		return "green"
	case LightStateOff:
		return "off"
	case LightStateFrozen:
		return "frozen"
	default:
		return "unknown"
	}
}

// LaneChangeDirection 变道方向
type LaneChangeDirection int32

const (
	LaneChangeNone  LaneChangeDirection = iota // 不变道
	LaneChangeLeft                             // 向左变道
	LaneChangeRight                            // 向右变道
)

// Side 将变道方向转换为LEFT/RIGHT方位常量
func (d LaneChangeDirection) Side() int {
	if d == LaneChangeLeft {
		return LEFT
	}
	return RIGHT
}

// LaneDescription 道路网络中单条车道的描述
// 功能：外部模拟在启动前提供的车道几何与拓扑数据，是构建本地路网索引的唯一输入
type LaneDescription struct {
	ID          int32            // 车道ID
	CenterLine  []geometry.Point // 中心线折线
	MaxV        float64          // 车道限速（米/秒）
	InJunction  bool             // 是否为路口内车道
	LightID     int32            // 控制进入本车道的信号灯ID，0表示无信控
	LeftLaneID  int32            // 左侧相邻车道ID，0表示无
	RightLaneID int32            // 右侧相邻车道ID，0表示无
	Successors  []int32          // 后继车道ID列表
}
