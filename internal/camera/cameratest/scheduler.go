package cameratest

import (
	"sync"
	"time"

	"github.com/taoyao-code/camera-bridge/internal/outbound"
)

// Scheduler 手动触发的合并窗口调度器
type Scheduler struct {
	mu    sync.Mutex
	fns   []func()
	Armed int
}

type timer struct {
	s   *Scheduler
	idx int
}

func (t *timer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.fns[t.idx] == nil {
		return false
	}
	t.s.fns[t.idx] = nil
	return true
}

func (s *Scheduler) AfterFunc(_ time.Duration, fn func()) outbound.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Armed++
	s.fns = append(s.fns, fn)
	return &timer{s: s, idx: len(s.fns) - 1}
}

// Fire 执行所有到期任务
func (s *Scheduler) Fire() {
	s.mu.Lock()
	fns := s.fns
	s.fns = make([]func(), len(fns))
	s.mu.Unlock()
	for _, fn := range fns {
		if fn != nil {
			fn()
		}
	}
}

// Notification 构造广播来源的上行通知帧
func Notification(category, parameter, dataType uint8, data ...byte) []byte {
	b := []byte{255, byte(4 + len(data)), 0, 0, category, parameter, dataType, 0}
	return append(b, data...)
}
