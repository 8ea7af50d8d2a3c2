// 本地路网索引：从外部模拟的车道描述构建一次，
// 之后只读，提供最近航点与后继航点查询。
package roadmap

import (
	"fmt"
	"math"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
)

const (
	gridCellSize  = 16.0 // 空间散列格子边长（米）
	maxSearchRing = 8    // 最近航点查询的最大扩环次数
)

// laneSample 单条车道的采样结果
type laneSample struct {
	waypoints  []*Waypoint
	successors []int32
	leftID     int32
	rightID    int32
}

type gridKey struct {
	X, Y int32
}

// Map 本地路网
// 功能：持有全部航点与空间散列索引
type Map struct {
	lanes     map[int32]*laneSample
	waypoints []*Waypoint
	grid      map[gridKey][]*Waypoint
}

// LaneInput Build的输入：车道几何与拓扑
// 说明：与entity.LaneDescription逐字段对应，
// 以独立结构避免roadmap反向依赖entity
type LaneInput struct {
	ID          int32
	CenterLine  []geometry.Point
	MaxV        float64
	InJunction  bool
	LightID     int32
	LeftLaneID  int32
	RightLaneID int32
	Successors  []int32
}

// Build 构建本地路网
// 参数：lanes-车道描述列表，resolution-航点采样间隔（米）
// 算法说明：
// 1. 对每条车道计算折线里程与方向，按resolution采样生成航点
// 2. 车道内航点顺次连接next
// 3. 车道末端航点连接到各后继车道的首航点
// 4. 按里程比例建立左右相邻车道航点的对应关系
// 5. 将所有航点写入空间散列格子
func Build(lanes []*LaneInput, resolution float64) (*Map, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("roadmap: bad resolution %v", resolution)
	}
	if len(lanes) == 0 {
		return nil, fmt.Errorf("roadmap: empty network description")
	}
	m := &Map{
		lanes: make(map[int32]*laneSample),
		grid:  make(map[gridKey][]*Waypoint),
	}
	for _, lane := range lanes {
		if len(lane.CenterLine) < 2 {
			return nil, fmt.Errorf("roadmap: lane %d has center line with %d points", lane.ID, len(lane.CenterLine))
		}
		if _, ok := m.lanes[lane.ID]; ok {
			return nil, fmt.Errorf("roadmap: duplicate lane id %d", lane.ID)
		}
		lengths := geometry.GetPolylineLengths2D(lane.CenterLine)
		directions := geometry.GetPolylineDirections(lane.CenterLine)
		length := lengths[len(lengths)-1]
		sample := &laneSample{
			successors: lane.Successors,
			leftID:     lane.LeftLaneID,
			rightID:    lane.RightLaneID,
		}
		// 采样：保证首尾都有航点
		n := int(math.Ceil(length/resolution)) + 1
		for i := 0; i < n; i++ {
			s := math.Min(float64(i)*resolution, length)
			wp := &Waypoint{
				laneID:     lane.ID,
				s:          s,
				position:   positionByS(lane.CenterLine, lengths, s),
				direction:  directionByS(directions, lengths, s),
				maxV:       lane.MaxV,
				inJunction: lane.InJunction,
				lightID:    lane.LightID,
			}
			sample.waypoints = append(sample.waypoints, wp)
			m.waypoints = append(m.waypoints, wp)
		}
		// 车道内连接
		for i := 0; i+1 < len(sample.waypoints); i++ {
			sample.waypoints[i].next = []*Waypoint{sample.waypoints[i+1]}
		}
		m.lanes[lane.ID] = sample
	}
	// 跨车道连接与左右对应
	for id, sample := range m.lanes {
		last := sample.waypoints[len(sample.waypoints)-1]
		for _, succID := range sample.successors {
			succ, ok := m.lanes[succID]
			if !ok {
				return nil, fmt.Errorf("roadmap: lane %d references unknown successor %d", id, succID)
			}
			last.next = append(last.next, succ.waypoints[0])
		}
		for side, otherID := range [2]int32{sample.leftID, sample.rightID} {
			if otherID == 0 {
				continue
			}
			other, ok := m.lanes[otherID]
			if !ok {
				return nil, fmt.Errorf("roadmap: lane %d references unknown neighbor %d", id, otherID)
			}
			// 按里程比例建立对应关系
			for i, wp := range sample.waypoints {
				j := i * (len(other.waypoints) - 1) / lo.Max([]int{len(sample.waypoints) - 1, 1})
				wp.sides[side] = other.waypoints[j]
			}
		}
	}
	// 空间散列
	for _, wp := range m.waypoints {
		key := toGridKey(wp.position)
		m.grid[key] = append(m.grid[key], wp)
	}
	return m, nil
}

func toGridKey(pos geometry.Point) gridKey {
	return gridKey{
		X: int32(math.Floor(pos.X / gridCellSize)),
		Y: int32(math.Floor(pos.Y / gridCellSize)),
	}
}

// NearestWaypoint 查询距离给定位置最近的航点
// 算法说明：
// 1. 从位置所在格子开始逐环扩大搜索范围
// 2. 找到候选后再多扫一环，避免边界处错过更近的点
// 3. 扩环上限内一无所获则退化为全量线性扫描
func (m *Map) NearestWaypoint(pos geometry.Point) *Waypoint {
	center := toGridKey(pos)
	var best *Waypoint
	bestD := math.Inf(0)
	scan := func(key gridKey) {
		for _, wp := range m.grid[key] {
			if d := distance2D(wp.position, pos); d < bestD {
				best = wp
				bestD = d
			}
		}
	}
	foundAt := -1
	for ring := 0; ring <= maxSearchRing; ring++ {
		if foundAt >= 0 && ring > foundAt+1 {
			break
		}
		for dx := -ring; dx <= ring; dx++ {
			for dy := -ring; dy <= ring; dy++ {
				if max(abs(dx), abs(dy)) != ring {
					continue // 只扫当前环
				}
				scan(gridKey{X: center.X + int32(dx), Y: center.Y + int32(dy)})
			}
		}
		if best != nil && foundAt < 0 {
			foundAt = ring
		}
	}
	if best == nil {
		for _, wp := range m.waypoints {
			if d := distance2D(wp.position, pos); d < bestD {
				best = wp
				bestD = d
			}
		}
	}
	return best
}

// Successors 从起点航点沿路网前向展开，直到累计距离到达distance
// 参数：choose-路口分叉时的选择函数，输入分支数返回分支下标；
// 传nil则总是选择第一个分支
// 返回：不含起点的有序航点序列
func (m *Map) Successors(start *Waypoint, distance float64, choose func(n int) int) []*Waypoint {
	var out []*Waypoint
	cur := start
	traveled := 0.0
	for traveled < distance {
		nexts := cur.next
		if len(nexts) == 0 {
			break // 断头路
		}
		var next *Waypoint
		if len(nexts) == 1 || choose == nil {
			next = nexts[0]
		} else {
			next = nexts[choose(len(nexts))]
		}
		traveled += distance2D(cur.position, next.position)
		out = append(out, next)
		cur = next
	}
	return out
}

// WaypointCount 航点总数
func (m *Map) WaypointCount() int {
	return len(m.waypoints)
}

// positionByS 沿折线按里程插值计算坐标
func positionByS(line []geometry.Point, lengths []float64, s float64) geometry.Point {
	s = lo.Clamp(s, lengths[0], lengths[len(lengths)-1])
	i := sort.SearchFloat64s(lengths, s)
	if i == 0 {
		return line[0]
	}
	sHigh, sLow := lengths[i], lengths[i-1]
	k := (s - sLow) / (sHigh - sLow)
	return geometry.Blend(line[i-1], line[i], k)
}

// directionByS 沿折线按里程查找所在折线段的方向
func directionByS(directions []geometry.PolylineDirection, lengths []float64, s float64) float64 {
	s = lo.Clamp(s, lengths[0], lengths[len(lengths)-1])
	if i := sort.SearchFloat64s(lengths, s); i > 0 {
		return directions[i-1].Direction
	}
	return directions[0].Direction
}

func distance2D(a, b geometry.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
