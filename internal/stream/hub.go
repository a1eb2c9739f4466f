// Package stream 按相机分发解码值给 websocket 订阅者
package stream

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/taoyao-code/camera-bridge/internal/bcs"
)

// Event 推送给订阅者的消息
type Event struct {
	Camera    string    `json:"camera"`
	Kind      bcs.Kind  `json:"kind"`
	Address   string    `json:"address"`
	Timestamp int64     `json:"timestamp"`
	Value     bcs.Value `json:"value"`
}

// Hub 订阅表；慢订阅者的缓冲满时丢弃新消息，不阻塞广播方
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[*Subscription]struct{}
	buffer  int
	dropped atomic.Int64
	now     func() time.Time
}

// NewHub buffer 为每个订阅者的缓冲条数
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{subs: make(map[string]map[*Subscription]struct{}), buffer: buffer, now: time.Now}
}

// Subscription 单个订阅
type Subscription struct {
	id     string
	hub    *Hub
	camera string
	ch     chan Event
	once   sync.Once
}

func (s *Subscription) ID() string { return s.id }

// C 消息通道；取消订阅后关闭
func (s *Subscription) C() <-chan Event { return s.ch }

// Close 取消订阅
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		delete(h.subs[s.camera], s)
		if len(h.subs[s.camera]) == 0 {
			delete(h.subs, s.camera)
		}
		close(s.ch)
		h.mu.Unlock()
	})
}

// Subscribe 订阅某台相机
func (h *Hub) Subscribe(camera string) *Subscription {
	s := &Subscription{id: uuid.NewString(), hub: h, camera: camera, ch: make(chan Event, h.buffer)}
	h.mu.Lock()
	if h.subs[camera] == nil {
		h.subs[camera] = make(map[*Subscription]struct{})
	}
	h.subs[camera][s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Broadcast 非阻塞投递
func (h *Hub) Broadcast(camera string, v bcs.Value) {
	ev := Event{
		Camera:    camera,
		Kind:      v.Kind(),
		Address:   v.Address().String(),
		Timestamp: h.now().UnixMilli(),
		Value:     v,
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[camera] {
		select {
		case s.ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Listener 把相机上报转发给订阅者
func (h *Hub) Listener(camera string) *bcs.Listener {
	return bcs.NewListener(func(v bcs.Value) { h.Broadcast(camera, v) })
}

// Count 当前订阅总数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, m := range h.subs {
		n += len(m)
	}
	return n
}

// Dropped 因缓冲满丢弃的消息数
func (h *Hub) Dropped() int64 { return h.dropped.Load() }
