package camera

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/taoyao-code/camera-bridge/internal/bcs"
	"github.com/taoyao-code/camera-bridge/internal/outbound"
	"go.uber.org/zap"
)

// 通知处理结果（指标标签）
const (
	ResultOK         = "ok"
	ResultFiltered   = "filtered"
	ResultError      = "error"
	ResultIgnored    = "ignored"
	ResultUnparsed   = "unparsed"
	ResultNoListener = "no_listener"
)

// 彩条显示时长上限（秒）
const maxColorBarsSeconds = 30

// Observer 指标回调
type Observer interface {
	outbound.Observer
	NotificationHandled(addr bcs.Address, result string)
	ListenerPanicked(addr bcs.Address)
}

// Client 单台相机的控制客户端
// 每台已连接相机一个实例，持有自己的合并缓冲与监听表
type Client struct {
	id     string
	name   string
	link   Link
	tx     Characteristic
	rx     Characteristic
	status Characteristic

	coalescer *outbound.Coalescer
	registry  *bcs.Registry

	logger        *zap.Logger
	observer      Observer
	onDecodeError func(error)
	coalesceOpts  []outbound.Option

	unsubscribe func()
	closed      atomic.Bool
}

// Option 客户端配置项
type Option func(*Client)

func WithName(name string) Option {
	return func(c *Client) { c.name = name }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithDecodeErrorHandler 结构性解码错误（帧过短、类型异常）回调，由调用方决定链路是否异常
func WithDecodeErrorHandler(fn func(error)) Option {
	return func(c *Client) { c.onDecodeError = fn }
}

// WithCoalescerOptions 透传合并器配置（窗口、节流、调度器）
func WithCoalescerOptions(opts ...outbound.Option) Option {
	return func(c *Client) { c.coalesceOpts = append(c.coalesceOpts, opts...) }
}

// New 在已连接的链路上查找控制特征并订阅通知
func New(link Link, opts ...Option) (*Client, error) {
	if link == nil {
		return nil, errors.New("nil link")
	}
	c := &Client{
		id:       uuid.New().String(),
		link:     link,
		registry: bcs.NewRegistry(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("camera", c.name), zap.String("client_id", c.id))

	var err error
	if c.tx, err = lookup(link, ControlTxCharUUID); err != nil {
		return nil, err
	}
	if c.rx, err = lookup(link, ControlRxCharUUID); err != nil {
		return nil, err
	}
	if c.status, err = lookup(link, CameraStatusUUID); err != nil {
		return nil, err
	}

	c.registry.OnPanic = func(addr bcs.Address, rec any) {
		c.logger.Error("listener panic", zap.String("address", addr.String()), zap.Any("recovered", rec))
		if c.observer != nil {
			c.observer.ListenerPanicked(addr)
		}
	}

	copts := append([]outbound.Option{outbound.WithLogger(c.logger)}, c.coalesceOpts...)
	if c.observer != nil {
		copts = append(copts, outbound.WithObserver(c.observer))
	}
	c.coalescer = outbound.NewCoalescer(c.writeControl, copts...)
	c.unsubscribe = c.rx.Subscribe(c.handleNotification)
	return c, nil
}

func lookup(link Link, char string) (Characteristic, error) {
	ch, err := link.Characteristic(ServiceUUID, char)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", char, err)
	}
	if ch == nil {
		return nil, fmt.Errorf("lookup %s: %w", char, ErrCharacteristicNotFound)
	}
	return ch, nil
}

// ID 客户端实例ID
func (c *Client) ID() string { return c.id }

// Name 相机名
func (c *Client) Name() string { return c.name }

// Connected 链路是否存活且客户端未关闭
func (c *Client) Connected() bool {
	return !c.closed.Load() && c.link.Connected()
}

// Close 关闭客户端：丢弃未发送的合并帧并取消通知订阅
func (c *Client) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.coalescer.Close()
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.logger.Info("camera client closed")
}

// Bond 向状态特征写入单字节完成绑定
func (c *Client) Bond(ctx context.Context) error {
	err := c.writeDirect(ctx, c.status, []byte{bondStatusPowerOn})
	if err != nil {
		c.logger.Warn("bond failed", zap.Error(err))
		return fmt.Errorf("bond: %w", err)
	}
	c.logger.Info("camera bonded")
	return nil
}

// StartNotifications 打开上行通知
func (c *Client) StartNotifications(ctx context.Context) error {
	if err := c.checkLive(); err != nil {
		return err
	}
	if err := c.rx.StartNotify(ctx); err != nil {
		c.logger.Warn("start notifications failed", zap.Error(err))
		return fmt.Errorf("start notifications: %w", err)
	}
	c.logger.Info("notifications started")
	return nil
}

// ---- 合并发送的设置项 ----

// SetApertureNormalized 归一化光圈（0..1）
func (c *Client) SetApertureNormalized(v float64) {
	c.submit(bcs.BuildApertureNormalized(bcs.EncodeFixed16(v)))
}

// SetShutterAngle 快门角度（度）
func (c *Client) SetShutterAngle(degrees float64) {
	c.submit(bcs.BuildShutterAngle(clampInt32(math.Round(degrees * 100))))
}

// SetShutterSpeed 快门速度 1/denominator
func (c *Client) SetShutterSpeed(denominator int) {
	c.submit(bcs.BuildShutterSpeed(clampInt32(float64(denominator))))
}

// SetGain 增益 dB
func (c *Client) SetGain(db int) {
	c.submit(bcs.BuildGain(int8(clampInt(db, math.MinInt8, math.MaxInt8))))
}

// SetWhiteBalance 手动白平衡
func (c *Client) SetWhiteBalance(temperature, tint int) {
	c.submit(bcs.BuildManualWB(
		int16(clampInt(temperature, math.MinInt16, math.MaxInt16)),
		int16(clampInt(tint, math.MinInt16, math.MaxInt16)),
	))
}

func (c *Client) SetLift(v bcs.Rgbl)   { c.setRgbl(bcs.AddrCCLift, v) }
func (c *Client) SetGamma(v bcs.Rgbl)  { c.setRgbl(bcs.AddrCCGamma, v) }
func (c *Client) SetCCGain(v bcs.Rgbl) { c.setRgbl(bcs.AddrCCGain, v) }
func (c *Client) SetOffset(v bcs.Rgbl) { c.setRgbl(bcs.AddrCCOffset, v) }

// SetContrast 对比度 pivot / adjust
func (c *Client) SetContrast(pivot, adjust float64) {
	c.submit(bcs.BuildContrast(bcs.EncodeFixed16(pivot), bcs.EncodeFixed16(adjust)))
}

// SetColorAdjust 色相 / 饱和度
func (c *Client) SetColorAdjust(hue, saturation float64) {
	c.submit(bcs.BuildColorAdjust(bcs.EncodeFixed16(hue), bcs.EncodeFixed16(saturation)))
}

func (c *Client) setRgbl(addr bcs.Address, v bcs.Rgbl) {
	c.submit(bcs.BuildColorRgbl(addr,
		bcs.EncodeFixed16(v[0]), bcs.EncodeFixed16(v[1]), bcs.EncodeFixed16(v[2]), bcs.EncodeFixed16(v[3])))
}

// ---- 直接发送（不合并，可等待结果）----

// SetAutoWhiteBalance 触发一次自动白平衡
func (c *Client) SetAutoWhiteBalance(ctx context.Context) error {
	if err := c.writeDirect(ctx, c.tx, bcs.BuildAutoWB()); err != nil {
		return fmt.Errorf("auto white balance: %w", err)
	}
	return nil
}

// ResetColorCorrection 重置全部调色参数
func (c *Client) ResetColorCorrection(ctx context.Context) error {
	if err := c.writeDirect(ctx, c.tx, bcs.BuildColorReset()); err != nil {
		return fmt.Errorf("reset color correction: %w", err)
	}
	return nil
}

// SetColorBars 显示彩条 seconds 秒，0 关闭
func (c *Client) SetColorBars(ctx context.Context, seconds int) error {
	f := bcs.BuildColorBars(int8(clampInt(seconds, 0, maxColorBarsSeconds)))
	if err := c.writeDirect(ctx, c.tx, f); err != nil {
		return fmt.Errorf("color bars: %w", err)
	}
	return nil
}

// ---- 监听 ----

// AddListener 注册参数监听者
func (c *Client) AddListener(addr bcs.Address, l *bcs.Listener) { c.registry.Add(addr, l) }

// RemoveListener 移除参数监听者
func (c *Client) RemoveListener(addr bcs.Address, l *bcs.Listener) { c.registry.Remove(addr, l) }

// PendingWrites 合并缓冲中的帧数
func (c *Client) PendingWrites() int { return c.coalescer.Pending() }

func (c *Client) submit(f bcs.Frame) {
	if c.closed.Load() {
		c.logger.Debug("client closed, frame dropped", zap.String("address", f.Address().String()))
		return
	}
	c.coalescer.Submit(f)
}

// writeControl 合并器的写出函数
func (c *Client) writeControl(ctx context.Context, f bcs.Frame) error {
	return c.writeDirect(ctx, c.tx, f)
}

func (c *Client) writeDirect(ctx context.Context, ch Characteristic, b []byte) error {
	if err := c.checkLive(); err != nil {
		return err
	}
	return ch.Write(ctx, b)
}

// checkLive 写入前检查客户端与链路状态
func (c *Client) checkLive() error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.link.Connected() {
		return ErrDisconnected
	}
	return nil
}

// handleNotification 上行通知：校验来源 -> 查监听 -> 解码 -> 分发
func (c *Client) handleNotification(buf []byte) {
	if c.closed.Load() {
		return
	}
	addr, err := bcs.PeekAddress(buf)
	if errors.Is(err, bcs.ErrNotBroadcast) {
		c.observe(addr, ResultIgnored)
		return
	}
	if err != nil {
		c.decodeFailed(addr, buf, err)
		return
	}
	if !c.registry.Has(addr) {
		c.observe(addr, ResultNoListener)
		return
	}

	v, err := bcs.Decode(buf)
	switch {
	case bcs.IsFiltered(err):
		c.logger.Debug("notification filtered", zap.String("address", addr.String()), zap.Error(err))
		c.observe(addr, ResultFiltered)
		return
	case err != nil:
		c.decodeFailed(addr, buf, err)
		return
	}

	if v.Kind() == bcs.KindUnparsed {
		c.observe(addr, ResultUnparsed)
	} else {
		c.observe(addr, ResultOK)
	}
	c.registry.Dispatch(addr, v)
}

func (c *Client) decodeFailed(addr bcs.Address, buf []byte, err error) {
	c.logger.Warn("notification decode failed",
		zap.String("address", addr.String()),
		zap.String("payload_hex", hex.EncodeToString(buf)),
		zap.Error(err))
	c.observe(addr, ResultError)
	if c.onDecodeError != nil {
		c.onDecodeError(err)
	}
}

func (c *Client) observe(addr bcs.Address, result string) {
	if c.observer != nil {
		c.observer.NotificationHandled(addr, result)
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt32(v float64) int32 {
	if math.IsNaN(v) {
		return 0
	}
	return int32(math.Max(math.MinInt32, math.Min(math.MaxInt32, v)))
}
