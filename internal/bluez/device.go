package bluez

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/taoyao-code/camera-bridge/internal/camera"
)

// servicesPollInterval 等待 ServicesResolved 的轮询间隔
const servicesPollInterval = 500 * time.Millisecond

// Adapter 本机蓝牙适配器
type Adapter struct {
	conn   *dbus.Conn
	path   dbus.ObjectPath
	logger *zap.Logger
}

// NewAdapter conn 通常来自 dbus.ConnectSystemBus
func NewAdapter(conn *dbus.Conn, adapter string, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{conn: conn, path: AdapterPath(adapter), logger: logger}
}

// Powered 适配器是否上电
func (a *Adapter) Powered(ctx context.Context) (bool, error) {
	var powered bool
	err := a.conn.Object(busName, a.path).
		CallWithContext(ctx, propertiesIface+".Get", 0, adapterInterface, "Powered").
		Store(&powered)
	if err != nil {
		return false, fmt.Errorf("adapter %s powered: %w", a.path, err)
	}
	return powered, nil
}

// Connect 连接设备并等待 GATT 服务解析完成
// 设备需已被 BlueZ 发现或配对过
func (a *Adapter) Connect(ctx context.Context, mac string) (*Device, error) {
	path, err := DevicePath(a.path, mac)
	if err != nil {
		return nil, err
	}
	obj := a.conn.Object(busName, path)
	logger := a.logger.With(zap.String("device", mac))

	connected, err := getBool(ctx, obj, deviceInterface, "Connected")
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", mac, err)
	}
	if !connected {
		logger.Info("connecting")
		if err := obj.CallWithContext(ctx, deviceInterface+".Connect", 0).Err; err != nil {
			// InProgress：其他进程正在连接，继续等待服务解析
			if !strings.Contains(err.Error(), "InProgress") {
				return nil, fmt.Errorf("connect %s: %w", mac, err)
			}
		}
	}

	if err := waitResolved(ctx, obj); err != nil {
		return nil, fmt.Errorf("device %s: %w", mac, err)
	}

	var objects managedObjects
	if err := a.conn.Object(busName, "/").CallWithContext(ctx, managedObjectsCall, 0).Store(&objects); err != nil {
		return nil, fmt.Errorf("managed objects: %w", err)
	}

	d := &Device{
		conn:   a.conn,
		path:   path,
		mac:    mac,
		index:  indexCharacteristics(objects, path),
		subs:   make(map[dbus.ObjectPath]map[uint64]func([]byte)),
		sigCh:  make(chan *dbus.Signal, 64),
		done:   make(chan struct{}),
		logger: logger,
	}
	d.connected.Store(true)
	if err := d.watch(); err != nil {
		return nil, err
	}
	logger.Info("gatt resolved", zap.Int("services", len(d.index)))
	return d, nil
}

func waitResolved(ctx context.Context, obj dbus.BusObject) error {
	ticker := time.NewTicker(servicesPollInterval)
	defer ticker.Stop()
	for {
		resolved, err := getBool(ctx, obj, deviceInterface, "ServicesResolved")
		if err == nil && resolved {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for services: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func getBool(ctx context.Context, obj dbus.BusObject, iface, prop string) (bool, error) {
	var v bool
	if err := obj.CallWithContext(ctx, propertiesIface+".Get", 0, iface, prop).Store(&v); err != nil {
		return false, fmt.Errorf("get %s.%s: %w", iface, prop, err)
	}
	return v, nil
}

// Device 已连接的 BLE 设备，实现 camera.Link
type Device struct {
	conn   *dbus.Conn
	path   dbus.ObjectPath
	mac    string
	index  charIndex
	logger *zap.Logger

	connected atomic.Bool

	mu     sync.Mutex
	subs   map[dbus.ObjectPath]map[uint64]func([]byte)
	nextID uint64

	sigCh     chan *dbus.Signal
	done      chan struct{}
	closeOnce sync.Once
}

var _ camera.Link = (*Device)(nil)

// Address 设备 MAC
func (d *Device) Address() string { return d.mac }

func (d *Device) Connected() bool { return d.connected.Load() }

func (d *Device) Characteristic(service, uuid string) (camera.Characteristic, error) {
	path, ok := d.index.lookup(service, uuid)
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", service, uuid, camera.ErrCharacteristicNotFound)
	}
	return &gattChar{dev: d, path: path, obj: d.conn.Object(busName, path)}, nil
}

// watch 订阅设备子树的 PropertiesChanged：特征 Value 分发给订阅者，Connected=false 标记断开
func (d *Device) watch() error {
	if err := d.conn.AddMatchSignal(
		dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember(propertiesChanged),
		dbus.WithMatchPathNamespace(d.path),
	); err != nil {
		return fmt.Errorf("add match: %w", err)
	}
	d.conn.Signal(d.sigCh)
	go d.loop()
	return nil
}

func (d *Device) loop() {
	for {
		select {
		case <-d.done:
			return
		case sig, ok := <-d.sigCh:
			if !ok {
				return
			}
			d.handleSignal(sig)
		}
	}
}

func (d *Device) handleSignal(sig *dbus.Signal) {
	if sig == nil {
		return
	}
	if sig.Path == d.path {
		if connected, ok := changedConnected(sig); ok {
			d.connected.Store(connected)
			if !connected {
				d.logger.Warn("device disconnected")
			}
		}
		return
	}
	value, ok := changedValue(sig)
	if !ok {
		return
	}
	d.mu.Lock()
	fns := make([]func([]byte), 0, len(d.subs[sig.Path]))
	for _, fn := range d.subs[sig.Path] {
		fns = append(fns, fn)
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn(value)
	}
}

func (d *Device) subscribe(path dbus.ObjectPath, fn func([]byte)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	if d.subs[path] == nil {
		d.subs[path] = make(map[uint64]func([]byte))
	}
	d.subs[path][id] = fn
	return func() {
		d.mu.Lock()
		delete(d.subs[path], id)
		d.mu.Unlock()
	}
}

// Close 停止信号监听并断开设备
func (d *Device) Close(ctx context.Context) error {
	var err error
	d.closeOnce.Do(func() {
		close(d.done)
		d.conn.RemoveSignal(d.sigCh)
		_ = d.conn.RemoveMatchSignal(
			dbus.WithMatchInterface(propertiesIface),
			dbus.WithMatchMember(propertiesChanged),
			dbus.WithMatchPathNamespace(d.path),
		)
		d.connected.Store(false)
		err = d.conn.Object(busName, d.path).CallWithContext(ctx, deviceInterface+".Disconnect", 0).Err
	})
	return err
}

// gattChar 单个 GATT 特征
type gattChar struct {
	dev  *Device
	path dbus.ObjectPath
	obj  dbus.BusObject
}

// Write 带响应写入
func (c *gattChar) Write(ctx context.Context, b []byte) error {
	opts := map[string]dbus.Variant{"type": dbus.MakeVariant("request")}
	if err := c.obj.CallWithContext(ctx, charInterface+".WriteValue", 0, b, opts).Err; err != nil {
		return fmt.Errorf("write %s: %w", c.path, err)
	}
	return nil
}

func (c *gattChar) StartNotify(ctx context.Context) error {
	if err := c.obj.CallWithContext(ctx, charInterface+".StartNotify", 0).Err; err != nil {
		return fmt.Errorf("start notify %s: %w", c.path, err)
	}
	return nil
}

func (c *gattChar) Subscribe(fn func([]byte)) func() {
	return c.dev.subscribe(c.path, fn)
}
