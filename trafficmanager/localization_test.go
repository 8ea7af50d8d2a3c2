package trafficmanager

import (
	"math"
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/entity"
)

func TestRelativePosition(t *testing.T) {
	// 车头朝+X
	tf := entity.Transform{Position: geometry.Point{X: 10, Y: 5}}
	longit, lat := relativePosition(tf, geometry.Point{X: 15, Y: 5})
	assert.InDelta(t, 5, longit, 1e-9)
	assert.InDelta(t, 0, lat, 1e-9)

	// 左前方：横向为正
	longit, lat = relativePosition(tf, geometry.Point{X: 12, Y: 8})
	assert.InDelta(t, 2, longit, 1e-9)
	assert.InDelta(t, 3, lat, 1e-9)

	// 车头朝+Y时，-X方向在左侧
	tf.Heading = math.Pi / 2
	longit, lat = relativePosition(tf, geometry.Point{X: 7, Y: 5})
	assert.InDelta(t, 0, longit, 1e-9)
	assert.InDelta(t, 3, lat, 1e-9)

	// 正后方
	longit, lat = relativePosition(tf, geometry.Point{X: 10, Y: 1})
	assert.InDelta(t, -4, longit, 1e-9)
	assert.InDelta(t, 0, lat, 1e-9)
}
