package session

import (
	"sort"
	"sync"
	"time"

	"github.com/taoyao-code/camera-bridge/internal/bcs"
	"github.com/taoyao-code/camera-bridge/internal/camera"
)

// Manager 相机会话表：相机名 -> 控制客户端，并记录最近一次上行通知时间
type Manager struct {
	mu       sync.RWMutex
	clients  map[string]*camera.Client
	boundAt  map[string]time.Time
	lastSeen map[string]time.Time
	timeout  time.Duration
	onChange func(bound int)
}

// New timeout 为判定“活跃”的通知间隔上限
func New(timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Manager{
		clients:  make(map[string]*camera.Client),
		boundAt:  make(map[string]time.Time),
		lastSeen: make(map[string]time.Time),
		timeout:  timeout,
	}
}

// OnChange 绑定数变化回调（指标）
func (m *Manager) OnChange(fn func(bound int)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Bind 绑定相机客户端，重复绑定时关闭旧客户端
func (m *Manager) Bind(name string, c *camera.Client) {
	m.mu.Lock()
	old := m.clients[name]
	m.clients[name] = c
	m.boundAt[name] = time.Now()
	delete(m.lastSeen, name)
	n, fn := len(m.clients), m.onChange
	m.mu.Unlock()

	if old != nil && old != c {
		old.Close()
	}
	if fn != nil {
		fn(n)
	}
}

// Unbind 解除绑定并关闭客户端
func (m *Manager) Unbind(name string) {
	m.mu.Lock()
	c, ok := m.clients[name]
	delete(m.clients, name)
	delete(m.boundAt, name)
	delete(m.lastSeen, name)
	n, fn := len(m.clients), m.onChange
	m.mu.Unlock()

	if !ok {
		return
	}
	c.Close()
	if fn != nil {
		fn(n)
	}
}

// Get 按相机名取客户端
func (m *Manager) Get(name string) (*camera.Client, bool) {
	m.mu.RLock()
	c, ok := m.clients[name]
	m.mu.RUnlock()
	return c, ok
}

// Touch 记录上行通知时间
func (m *Manager) Touch(name string, t time.Time) {
	m.mu.Lock()
	if _, ok := m.clients[name]; ok {
		m.lastSeen[name] = t
	}
	m.mu.Unlock()
}

// Listener 任一上报都刷新活跃时间
func (m *Manager) Listener(name string) *bcs.Listener {
	return bcs.NewListener(func(bcs.Value) { m.Touch(name, time.Now()) })
}

// IsOnline 客户端存活且链路连接
func (m *Manager) IsOnline(name string) bool {
	c, ok := m.Get(name)
	return ok && c.Connected()
}

// IsActive 最近 timeout 内收到过通知
func (m *Manager) IsActive(name string, now time.Time) bool {
	m.mu.RLock()
	ts, ok := m.lastSeen[name]
	m.mu.RUnlock()
	return ok && now.Sub(ts) <= m.timeout
}

// OnlineCount 在线相机数
func (m *Manager) OnlineCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, c := range m.clients {
		if c.Connected() {
			count++
		}
	}
	return count
}

// Info 会话快照
type Info struct {
	Name      string     `json:"name"`
	ClientID  string     `json:"client_id"`
	Connected bool       `json:"connected"`
	BoundAt   time.Time  `json:"bound_at"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
}

// Snapshot 按名称排序的会话列表
func (m *Manager) Snapshot() []Info {
	m.mu.RLock()
	out := make([]Info, 0, len(m.clients))
	for name, c := range m.clients {
		info := Info{Name: name, ClientID: c.ID(), Connected: c.Connected(), BoundAt: m.boundAt[name]}
		if ts, ok := m.lastSeen[name]; ok {
			ts := ts
			info.LastSeen = &ts
		}
		out = append(out, info)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CloseAll 关闭并移除全部客户端
func (m *Manager) CloseAll() {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]*camera.Client)
	m.boundAt = make(map[string]time.Time)
	m.lastSeen = make(map[string]time.Time)
	fn := m.onChange
	m.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	if fn != nil && len(clients) > 0 {
		fn(0)
	}
}
