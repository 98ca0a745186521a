// Package keylock 提供按 key 分段的互斥锁，用于同一用户的读-改-写串行化。
package keylock

import (
	"hash/fnv"
	"sync"
)

const defaultStripes = 64

// Striped 把 key 哈希到固定数量的互斥锁上，不同 key 可能共享同一把锁。
type Striped struct {
	mus []sync.Mutex
}

// New 创建分段锁，stripes <= 0 时使用默认值。
func New(stripes int) *Striped {
	if stripes <= 0 {
		stripes = defaultStripes
	}
	return &Striped{mus: make([]sync.Mutex, stripes)}
}

// Lock 锁定 key 所在分段，返回解锁函数。
func (s *Striped) Lock(key string) (unlock func()) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	mu := &s.mus[h.Sum32()%uint32(len(s.mus))]
	mu.Lock()
	return mu.Unlock
}
