package bcs

import "sync"

// Listener 参数监听者；以指针身份区分，同一个 Listener 可重复注册
type Listener struct {
	fn func(Value)
}

// NewListener 包装回调
func NewListener(fn func(Value)) *Listener {
	return &Listener{fn: fn}
}

// Registry 按参数地址维护有序的监听者列表
type Registry struct {
	mu sync.RWMutex
	m  map[Address][]*Listener
	// OnPanic 回调 panic 时调用；为空则静默吞掉
	OnPanic func(addr Address, recovered any)
}

func NewRegistry() *Registry { return &Registry{m: make(map[Address][]*Listener)} }

// Add 追加监听者，不去重
func (r *Registry) Add(addr Address, l *Listener) {
	if l == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[addr] = append(r.m[addr], l)
}

// Remove 移除第一个匹配的监听者；未注册时为空操作
func (r *Registry) Remove(addr Address, l *Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.m[addr]
	for i, x := range list {
		if x != l {
			continue
		}
		next := make([]*Listener, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(r.m, addr)
		} else {
			r.m[addr] = next
		}
		return
	}
}

// Has 地址上是否有监听者
func (r *Registry) Has(addr Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m[addr]) > 0
}

// Count 地址上的监听者数量
func (r *Registry) Count(addr Address) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m[addr])
}

// Dispatch 按注册顺序在当前 goroutine 同步调用监听者
// 单个回调 panic 不影响后续回调，返回成功调用的数量
func (r *Registry) Dispatch(addr Address, v Value) int {
	r.mu.RLock()
	list := r.m[addr]
	r.mu.RUnlock()

	n := 0
	for _, l := range list {
		if r.invoke(addr, l, v) {
			n++
		}
	}
	return n
}

func (r *Registry) invoke(addr Address, l *Listener, v Value) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
			if r.OnPanic != nil {
				r.OnPanic(addr, rec)
			}
		}
	}()
	if l.fn == nil {
		return false
	}
	l.fn(v)
	return true
}
