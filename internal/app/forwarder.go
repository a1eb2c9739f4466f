package app

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/camera-bridge/internal/bcs"
)

// Sink 解码值的下游（状态缓存、MQTT 等）
type Sink interface {
	Name() string
	Handle(ctx context.Context, camera string, v bcs.Value) error
}

// SinkFunc 函数适配
type SinkFunc struct {
	SinkName string
	Fn       func(ctx context.Context, camera string, v bcs.Value) error
}

func (s SinkFunc) Name() string { return s.SinkName }

func (s SinkFunc) Handle(ctx context.Context, camera string, v bcs.Value) error {
	return s.Fn(ctx, camera, v)
}

type forwardItem struct {
	camera string
	value  bcs.Value
}

// Forwarder 解码值转发：监听回调只入队，后台协程依次写各个 Sink
// 通知回调运行在链路的通知协程上，不能被网络 IO 阻塞
type Forwarder struct {
	ch        chan forwardItem
	sinks     []Sink
	timeout   time.Duration
	logger    *zap.Logger
	onResult  func(sink string, err error)
	dropped   atomic.Int64
	delivered atomic.Int64
}

// NewForwarder queueSize 为待转发队列长度
func NewForwarder(queueSize int, logger *zap.Logger, sinks ...Sink) *Forwarder {
	if queueSize <= 0 {
		queueSize = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Forwarder{
		ch:      make(chan forwardItem, queueSize),
		sinks:   sinks,
		timeout: 3 * time.Second,
		logger:  logger,
	}
}

// OnResult 每次 Sink 写入后的回调（指标）
func (f *Forwarder) OnResult(fn func(sink string, err error)) { f.onResult = fn }

// Enqueue 非阻塞入队，队列满时丢弃
func (f *Forwarder) Enqueue(camera string, v bcs.Value) {
	select {
	case f.ch <- forwardItem{camera: camera, value: v}:
	default:
		if f.dropped.Add(1)%100 == 1 {
			f.logger.Warn("forward queue full, value dropped",
				zap.String("camera", camera),
				zap.String("kind", string(v.Kind())),
				zap.Int64("dropped_total", f.dropped.Load()))
		}
	}
}

// Listener 为相机生成监听者
func (f *Forwarder) Listener(camera string) *bcs.Listener {
	return bcs.NewListener(func(v bcs.Value) { f.Enqueue(camera, v) })
}

// Run 消费队列直到 ctx 结束
func (f *Forwarder) Run(ctx context.Context) {
	f.logger.Info("forwarder started", zap.Int("sinks", len(f.sinks)))
	for {
		select {
		case <-ctx.Done():
			f.logger.Info("forwarder stopped",
				zap.Int64("delivered", f.delivered.Load()),
				zap.Int64("dropped", f.dropped.Load()))
			return
		case it := <-f.ch:
			f.deliver(ctx, it)
		}
	}
}

func (f *Forwarder) deliver(ctx context.Context, it forwardItem) {
	for _, s := range f.sinks {
		sctx, cancel := context.WithTimeout(ctx, f.timeout)
		err := s.Handle(sctx, it.camera, it.value)
		cancel()
		if err != nil {
			f.logger.Warn("forward failed",
				zap.String("sink", s.Name()),
				zap.String("camera", it.camera),
				zap.String("kind", string(it.value.Kind())),
				zap.Error(err))
		}
		if f.onResult != nil {
			f.onResult(s.Name(), err)
		}
	}
	f.delivered.Add(1)
}

// Stats 转发统计
func (f *Forwarder) Stats() (delivered, dropped int64) {
	return f.delivered.Load(), f.dropped.Load()
}
