package roadmap_test

import (
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/roadmap"
)

// 双车道直路接一条有信控的路口车道
func testLanes() []*roadmap.LaneInput {
	return []*roadmap.LaneInput{
		{
			ID:          1,
			CenterLine:  []geometry.Point{{X: 0, Y: 0}, {X: 20, Y: 0}},
			MaxV:        13.89,
			RightLaneID: 2,
			Successors:  []int32{3},
		},
		{
			ID:         2,
			CenterLine: []geometry.Point{{X: 0, Y: -3.5}, {X: 20, Y: -3.5}},
			MaxV:       13.89,
			LeftLaneID: 1,
		},
		{
			ID:         3,
			CenterLine: []geometry.Point{{X: 20, Y: 0}, {X: 30, Y: 0}},
			MaxV:       8.33,
			InJunction: true,
			LightID:    9,
		},
	}
}

func TestBuild(t *testing.T) {
	m, err := roadmap.Build(testLanes(), 2)
	assert.NoError(t, err)
	// 车道1/2各11个航点（20米），车道3有6个（10米）
	assert.Equal(t, 28, m.WaypointCount())
}

func TestBuildErrors(t *testing.T) {
	_, err := roadmap.Build(testLanes(), 0)
	assert.Error(t, err)
	_, err = roadmap.Build(nil, 2)
	assert.Error(t, err)

	lanes := testLanes()
	lanes[1].ID = 1 // 重复ID
	_, err = roadmap.Build(lanes, 2)
	assert.Error(t, err)

	lanes = testLanes()
	lanes[0].Successors = []int32{99} // 未知后继
	_, err = roadmap.Build(lanes, 2)
	assert.Error(t, err)

	lanes = testLanes()
	lanes[2].CenterLine = lanes[2].CenterLine[:1] // 折线退化
	_, err = roadmap.Build(lanes, 2)
	assert.Error(t, err)
}

func TestNearestWaypoint(t *testing.T) {
	m, err := roadmap.Build(testLanes(), 2)
	assert.NoError(t, err)

	wp := m.NearestWaypoint(geometry.Point{X: 0.4, Y: 0.5})
	assert.NotNil(t, wp)
	assert.Equal(t, int32(1), wp.LaneID())
	assert.Equal(t, 0.0, wp.S())

	wp = m.NearestWaypoint(geometry.Point{X: 25.1, Y: -0.2})
	assert.NotNil(t, wp)
	assert.Equal(t, int32(3), wp.LaneID())
	assert.True(t, wp.InJunction())
	assert.Equal(t, int32(9), wp.LightID())
	assert.Equal(t, 8.33, wp.MaxV())
}

func TestSuccessorsAcrossLanes(t *testing.T) {
	m, err := roadmap.Build(testLanes(), 2)
	assert.NoError(t, err)

	start := m.NearestWaypoint(geometry.Point{X: 0, Y: 0})
	out := m.Successors(start, 25, nil)
	assert.NotEmpty(t, out)
	// 走完车道1后进入后继车道3
	assert.Equal(t, int32(3), out[len(out)-1].LaneID())
	// 断头路：车道3走到头为止
	for _, wp := range out {
		assert.NotEqual(t, int32(2), wp.LaneID())
	}
}

func TestNeighbor(t *testing.T) {
	m, err := roadmap.Build(testLanes(), 2)
	assert.NoError(t, err)

	wp := m.NearestWaypoint(geometry.Point{X: 10, Y: 0})
	assert.Equal(t, int32(1), wp.LaneID())
	right := wp.Neighbor(1)
	assert.NotNil(t, right)
	assert.Equal(t, int32(2), right.LaneID())
	// 车道2回指车道1
	assert.Equal(t, int32(1), right.Neighbor(0).LaneID())
	// 车道2没有右邻
	assert.Nil(t, right.Neighbor(1))
	// 路口车道没有左右邻
	jwp := m.NearestWaypoint(geometry.Point{X: 25.1, Y: 0})
	assert.Nil(t, jwp.Neighbor(0))
	assert.Nil(t, jwp.Neighbor(1))
}
