package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/container"
)

func TestPriorityQueue(t *testing.T) {
	q := container.NewPriorityQueue[string]()
	assert.Equal(t, 0, q.Len())

	q.HeapPush("c", 3)
	q.HeapPush("a", 1)
	q.HeapPush("b", 2)
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, "a", q.First())

	v, p := q.HeapPop()
	assert.Equal(t, "a", v)
	assert.Equal(t, 1.0, p)
	v, _ = q.HeapPop()
	assert.Equal(t, "b", v)
	v, _ = q.HeapPop()
	assert.Equal(t, "c", v)
	assert.Equal(t, 0, q.Len())
}
