package local

import (
	"sync"

	"github.com/tsinghua-fib-lab/trafficmanager-oss/entity"
)

// Light 内置信号灯
// 功能：红绿两相的定周期状态机，支持冻结（状态保持、计时停走）
type Light struct {
	id      int32
	groupID int32

	mtx    sync.Mutex
	state  entity.LightState
	frozen bool
	cycle  int // 每相持续的步数，0表示恒定
	timer  int
}

var _ entity.ILight = (*Light)(nil)

func (l *Light) ID() int32 {
	return l.id
}

func (l *Light) GroupID() int32 {
	return l.groupID
}

func (l *Light) State() entity.LightState {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.state
}

func (l *Light) SetState(s entity.LightState) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.state = s
	l.timer = 0
}

func (l *Light) Freeze(freeze bool) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.frozen = freeze
}

func (l *Light) IsFrozen() bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.frozen
}

// step 状态机步进一格，冻结时计时停走
func (l *Light) step() {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.frozen || l.cycle <= 0 {
		return
	}
	l.timer++
	if l.timer < l.cycle {
		return
	}
	l.timer = 0
	switch l.state {
	case entity.LightStateRed:
		l.state = entity.LightStateGreen
	case entity.LightStateGreen:
		l.state = entity.LightStateRed
	}
}
