package container

import (
	"sync"
)

// IIncrementalItem 支持增量维护的元素接口
// 功能：元素需要跟踪自己在数组中的下标，删除时才能O(1)定位
type IIncrementalItem interface {
	Index() int
	SetIndex(index int)
}

// IncrementalItemBase 增量元素基类，嵌入后即实现IIncrementalItem
type IncrementalItemBase struct {
	index int
}

func (b *IncrementalItemBase) Index() int {
	return b.index
}

func (b *IncrementalItemBase) SetIndex(index int) {
	b.index = index
}

// IncrementalArray 增量数组
// 功能：并发安全地缓冲添加/删除请求，在epoch边界由Prepare统一应用
// 说明：Data()返回的切片在两次Prepare之间不变，阶段协程可以无锁遍历；
// 这正是"epoch中途注册的车辆本epoch可见与否不确定"语义的载体
type IncrementalArray[T IIncrementalItem] struct {
	data []T

	pendingAdd    []T
	pendingRemove []T
	pendingMutex  sync.Mutex
}

// NewIncrementalArray 创建增量数组
func NewIncrementalArray[T IIncrementalItem]() *IncrementalArray[T] {
	return &IncrementalArray[T]{
		data:          make([]T, 0),
		pendingAdd:    make([]T, 0),
		pendingRemove: make([]T, 0),
	}
}

// Len 获取当前数组长度（不含未应用的增量）
func (a *IncrementalArray[T]) Len() int {
	return len(a.data)
}

// Data 获取当前数据切片
// 说明：调用方不得修改，切片内容仅在Prepare时变化
func (a *IncrementalArray[T]) Data() []T {
	return a.data
}

// Add 增加元素（等到Prepare时才真正加入）
func (a *IncrementalArray[T]) Add(value T) {
	a.pendingMutex.Lock()
	defer a.pendingMutex.Unlock()
	value.SetIndex(-1) // 入驻前的哨兵下标，与在位元素区分
	a.pendingAdd = append(a.pendingAdd, value)
}

// Remove 删除元素（等到Prepare时才真正删除）
func (a *IncrementalArray[T]) Remove(value T) {
	a.pendingMutex.Lock()
	defer a.pendingMutex.Unlock()
	a.pendingRemove = append(a.pendingRemove, value)
}

// Prepare 应用全部待处理的增量操作
// 算法说明：
// 1. 下标为-1的删除项从未入驻（同一epoch内先增后删，或重复删除），
//    只与待添加缓冲中的同一元素相互抵消，绝不触碰在位元素
// 2. 在位元素的删除采用与末尾交换的方式，平均O(1)，
//    依赖元素自身维护的下标
// 3. 添加追加到末尾并写入下标
// 说明：只能由epoch边界的单一协程调用，与Data()的读者互斥由调用方保证
func (a *IncrementalArray[T]) Prepare() {
	a.pendingMutex.Lock()
	defer a.pendingMutex.Unlock()

	var cancelled map[IIncrementalItem]struct{}
	for _, x := range a.pendingRemove {
		ind := x.Index()
		if ind < 0 {
			if cancelled == nil {
				cancelled = make(map[IIncrementalItem]struct{})
			}
			cancelled[x] = struct{}{}
			continue
		}
		if ind >= len(a.data) {
			continue
		}
		last := len(a.data) - 1
		a.data[ind] = a.data[last]
		a.data[ind].SetIndex(ind)
		a.data = a.data[:last]
		x.SetIndex(-1)
	}
	for _, x := range a.pendingAdd {
		if _, ok := cancelled[x]; ok {
			continue
		}
		x.SetIndex(len(a.data))
		a.data = append(a.data, x)
	}

	a.pendingAdd = a.pendingAdd[:0]
	a.pendingRemove = a.pendingRemove[:0]
}
