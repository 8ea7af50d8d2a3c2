package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/container"
)

type testItem struct {
	container.IncrementalItemBase
	id int
}

func TestIncrementalArrayAdd(t *testing.T) {
	a := container.NewIncrementalArray[*testItem]()
	i1 := &testItem{id: 1}
	i2 := &testItem{id: 2}
	a.Add(i1)
	a.Add(i2)
	// 增量未应用前不可见
	assert.Equal(t, 0, a.Len())
	a.Prepare()
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, i1, a.Data()[0])
	assert.Equal(t, i2, a.Data()[1])
	assert.Equal(t, 0, i1.Index())
	assert.Equal(t, 1, i2.Index())
}

func TestIncrementalArrayRemove(t *testing.T) {
	a := container.NewIncrementalArray[*testItem]()
	items := make([]*testItem, 4)
	for i := range items {
		items[i] = &testItem{id: i}
		a.Add(items[i])
	}
	a.Prepare()

	// 删除中间元素：末位换入被删位置
	a.Remove(items[1])
	a.Prepare()
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, items[3], a.Data()[1])
	assert.Equal(t, 1, items[3].Index())
	assert.Equal(t, -1, items[1].Index())

	// 重复删除同一元素不破坏数组
	a.Remove(items[1])
	a.Remove(items[1])
	a.Prepare()
	assert.Equal(t, 3, a.Len())
}

func TestIncrementalArrayAddRemoveSameEpoch(t *testing.T) {
	a := container.NewIncrementalArray[*testItem]()
	i1 := &testItem{id: 1}
	a.Add(i1)
	a.Prepare()
	i2 := &testItem{id: 2}
	a.Add(i2)
	a.Remove(i1)
	a.Prepare()
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, i2, a.Data()[0])
}

func TestIncrementalArrayAddThenRemoveBeforePrepare(t *testing.T) {
	a := container.NewIncrementalArray[*testItem]()
	i1 := &testItem{id: 1}
	a.Add(i1)
	a.Prepare()

	// 同一epoch内先增后删：两个请求相互抵消，
	// 在位元素不受影响，被撤回的元素也不会入驻
	i2 := &testItem{id: 2}
	a.Add(i2)
	a.Remove(i2)
	a.Prepare()
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, i1, a.Data()[0])
	assert.Equal(t, 0, i1.Index())
	assert.Equal(t, -1, i2.Index())

	// 撤回后的元素可以重新添加
	a.Add(i2)
	a.Prepare()
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, i2, a.Data()[1])
}
