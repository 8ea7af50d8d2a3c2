package trafficmanager

import (
	"testing"
	"time"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/entity"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/local"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/config"
)

func TestStagePanicStopsPipeline(t *testing.T) {
	lanes := []*entity.LaneDescription{
		{
			ID:         1,
			CenterLine: []geometry.Point{{X: 0, Y: 0}, {X: 300, Y: 0}},
			MaxV:       13.89,
		},
	}
	w := local.NewWorld(0.05, lanes)
	m, err := New(w, config.Config{Control: config.Control{
		Synchronous: true,
		Step:        config.ControlStep{Interval: 0.05},
	}})
	assert.NoError(t, err)
	assert.NoError(t, m.Start())

	// 阶段goroutine异常退出：整条流水线应中止并回到Stopped，
	// 哪怕异常抢在Start标记Running之前发生
	m.status.Store(statusStarting)
	m.spawn("faulty", func() { panic("stage failure") })
	time.Sleep(10 * time.Millisecond)
	m.status.Store(statusRunning)

	assert.Eventually(t, func() bool {
		return m.status.Load() == statusStopped
	}, time.Second, 10*time.Millisecond)
	assert.False(t, m.SynchronousTick())

	// 中止后可以重新启动
	assert.NoError(t, m.Start())
	assert.True(t, m.SynchronousTick())
	m.Stop()
}
