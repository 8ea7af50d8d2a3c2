package roadmap

import (
	"fmt"

	"git.fiblab.net/general/common/v2/geometry"
)

// Waypoint 路网航点
// 功能：沿车道中心线按固定间隔采样得到的离散导航点，
// 携带车道元数据与前后/左右连接关系
// 说明：构建完成后全部字段只读，可被各阶段无同步并发访问
type Waypoint struct {
	laneID     int32
	s          float64        // 在车道中心线上的里程（米）
	position   geometry.Point // 世界坐标
	direction  float64        // 切向角（弧度）
	maxV       float64        // 车道限速（米/秒）
	inJunction bool           // 是否位于路口内车道
	lightID    int32          // 控制进入所在车道的信号灯ID，0表示无

	next        []*Waypoint // 后继航点（车道内唯一，车道末端为各后继车道首航点）
	sides       [2]*Waypoint
}

func (w *Waypoint) String() string {
	return fmt.Sprintf("Waypoint{Lane=%d, S=%.1f}", w.laneID, w.s)
}

// LaneID 所在车道ID
func (w *Waypoint) LaneID() int32 {
	return w.laneID
}

// S 在车道上的里程坐标
func (w *Waypoint) S() float64 {
	return w.s
}

// Position 世界坐标
func (w *Waypoint) Position() geometry.Point {
	return w.position
}

// Direction 切向角（弧度）
func (w *Waypoint) Direction() float64 {
	return w.direction
}

// MaxV 车道限速
func (w *Waypoint) MaxV() float64 {
	return w.maxV
}

// InJunction 是否位于路口内车道
func (w *Waypoint) InJunction() bool {
	return w.inJunction
}

// LightID 控制本车道入口的信号灯ID，0表示无信控
func (w *Waypoint) LightID() int32 {
	return w.lightID
}

// Next 后继航点列表
func (w *Waypoint) Next() []*Waypoint {
	return w.next
}

// Neighbor 根据side获取左(side=0)/右(side=1)侧相邻车道上的对应航点
func (w *Waypoint) Neighbor(side int) *Waypoint {
	return w.sides[side]
}
