package outbound

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/taoyao-code/camera-bridge/internal/bcs"
	"go.uber.org/zap"
)

// DefaultWindow 合并窗口
const DefaultWindow = 4 * time.Millisecond

// WriteFunc 实际写链路的函数
type WriteFunc func(ctx context.Context, f bcs.Frame) error

// Timer 可取消的定时任务
type Timer interface {
	Stop() bool
}

// Scheduler 延时调度器，测试中可替换为手动时钟
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, fn func()) Timer { return time.AfterFunc(d, fn) }

// Observer 合并/写出事件回调（指标）
type Observer interface {
	FrameSubmitted(key bcs.Key, replaced bool)
	FrameWritten(key bcs.Key, err error)
}

// State 调度状态：Idle 无定时器；Armed 已有定时器等待 flush
type State int

const (
	StateIdle State = iota
	StateArmed
)

func (s State) String() string {
	if s == StateArmed {
		return "armed"
	}
	return "idle"
}

// Coalescer 下行帧合并器
// 同一 Key 在窗口内只保留最后一帧；窗口到期后每个 Key 写出一次
type Coalescer struct {
	flushMu sync.Mutex // 串行化 flush，保证同一 Key 新值晚于旧值写出
	mu      sync.Mutex
	pending map[bcs.Key]bcs.Frame
	state   State
	timer   Timer
	closed  bool

	write        WriteFunc
	window       time.Duration
	sched        Scheduler
	limiter      *RateLimiter
	writeTimeout time.Duration
	observer     Observer
	logger       *zap.Logger
}

// Option 配置项
type Option func(*Coalescer)

func WithWindow(d time.Duration) Option {
	return func(c *Coalescer) {
		if d > 0 {
			c.window = d
		}
	}
}

func WithScheduler(s Scheduler) Option {
	return func(c *Coalescer) {
		if s != nil {
			c.sched = s
		}
	}
}

// WithRateLimiter flush 时按令牌桶节流写出
func WithRateLimiter(l *RateLimiter) Option {
	return func(c *Coalescer) { c.limiter = l }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Coalescer) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Coalescer) { c.observer = o }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Coalescer) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCoalescer 创建合并器
func NewCoalescer(write WriteFunc, opts ...Option) *Coalescer {
	c := &Coalescer{
		pending:      make(map[bcs.Key]bcs.Frame),
		write:        write,
		window:       DefaultWindow,
		sched:        wallClock{},
		writeTimeout: 2 * time.Second,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit 缓存帧并在 Idle 时启动定时器；不阻塞
func (c *Coalescer) Submit(f bcs.Frame) {
	key := f.Key()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Debug("coalescer closed, frame dropped", zap.String("key", key.String()))
		return
	}
	_, replaced := c.pending[key]
	c.pending[key] = f
	if c.state == StateIdle {
		c.state = StateArmed
		c.timer = c.sched.AfterFunc(c.window, c.flush)
	}
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.FrameSubmitted(key, replaced)
	}
}

// flush 定时器到期：取走缓冲并回到 Idle，随后逐帧写出
// 上一轮写出未结束时等待，再取走此刻最新的缓冲
func (c *Coalescer) flush() {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	batch := c.pending
	c.pending = make(map[bcs.Key]bcs.Frame, len(batch))
	c.state = StateIdle
	c.timer = nil
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return
	}
	for key, f := range batch {
		c.writeOne(key, f)
	}
}

// writeOne 单帧写出，失败只记录，不影响其他 Key
func (c *Coalescer) writeOne(key bcs.Key, f bcs.Frame) {
	ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
	defer cancel()

	var err error
	if c.limiter != nil {
		err = c.limiter.Wait(ctx)
	}
	if err == nil {
		err = c.write(ctx, f)
	}
	if err != nil {
		c.logger.Warn("coalesced write failed",
			zap.String("key", key.String()),
			zap.String("frame_hex", hex.EncodeToString(f)),
			zap.Error(err))
	}
	if c.observer != nil {
		c.observer.FrameWritten(key, err)
	}
}

// State 当前调度状态
func (c *Coalescer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending 当前缓冲的帧数
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close 停止定时器并丢弃缓冲；之后的 Submit 为空操作
func (c *Coalescer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.state = StateIdle
	c.pending = make(map[bcs.Key]bcs.Frame)
}
