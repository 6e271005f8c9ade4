package client

import (
	"sync"
	"sync/atomic"

	"github.com/BaSui01/fedflow/types"
)

// stateMachine 持有当前连接状态并串行分发转移通知。
// 读取走原子变量，转移 + 通知由互斥锁保证提交顺序与送达顺序一致，
// 因此回调内再读取 Current 不会死锁。
type stateMachine struct {
	mu      sync.Mutex
	current atomic.Int32
	notify  func(old, new types.ConnectionState)
}

func newStateMachine(notify func(old, new types.ConnectionState)) *stateMachine {
	s := &stateMachine{notify: notify}
	s.current.Store(int32(types.StateDisconnected))
	return s
}

// Current 返回最近一次提交的状态。
func (s *stateMachine) Current() types.ConnectionState {
	return types.ConnectionState(s.current.Load())
}

// To 尝试转移到 next。仅当新旧状态不同时提交并触发一次通知，
// 返回是否发生了提交。
func (s *stateMachine) To(next types.ConnectionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := types.ConnectionState(s.current.Load())
	if old == next {
		return false
	}
	s.current.Store(int32(next))
	if s.notify != nil {
		s.notify(old, next)
	}
	return true
}
