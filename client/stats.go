package client

import (
	"sync/atomic"

	"github.com/BaSui01/fedflow/types"
)

// statsSlot 以不可变快照方式发布会话统计。
// 写入只发生在会话任务内（串行），读者通过原子指针总能看到
// 一份完整一致的快照，不需要加锁。
type statsSlot struct {
	current  atomic.Pointer[types.SessionStats]
	onUpdate func(types.SessionStats)
}

func newStatsSlot(onUpdate func(types.SessionStats)) *statsSlot {
	s := &statsSlot{onUpdate: onUpdate}
	var zero types.SessionStats
	s.current.Store(&zero)
	return s
}

// Load 返回最新快照的副本。
func (s *statsSlot) Load() types.SessionStats {
	return *s.current.Load()
}

// update 读取-变换-发布一次快照，并同步通知订阅者。
func (s *statsSlot) update(mutate func(types.SessionStats) types.SessionStats) {
	next := mutate(*s.current.Load())
	s.current.Store(&next)
	if s.onUpdate != nil {
		s.onUpdate(next)
	}
}
