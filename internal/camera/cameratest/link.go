// Package cameratest 提供内存中的 GATT 链路，供上层包测试使用
package cameratest

import (
	"context"
	"sync"

	"github.com/taoyao-code/camera-bridge/internal/camera"
)

// Link 假链路：按特征记录写入，可注入通知
type Link struct {
	mu        sync.Mutex
	connected bool
	chars     map[string]*Characteristic
	missing   map[string]bool
}

// NewLink 创建已连接的假链路，包含相机的全部控制特征
func NewLink() *Link {
	l := &Link{
		connected: true,
		chars:     make(map[string]*Characteristic),
		missing:   make(map[string]bool),
	}
	for _, uuid := range []string{camera.ControlTxCharUUID, camera.ControlRxCharUUID, camera.CameraStatusUUID, camera.TimecodeCharUUID} {
		l.chars[uuid] = &Characteristic{uuid: uuid}
	}
	return l
}

func (l *Link) Characteristic(service, uuid string) (camera.Characteristic, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if service != camera.ServiceUUID || l.missing[uuid] {
		return nil, camera.ErrCharacteristicNotFound
	}
	ch, ok := l.chars[uuid]
	if !ok {
		return nil, camera.ErrCharacteristicNotFound
	}
	return ch, nil
}

func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

// SetConnected 模拟断开/重连
func (l *Link) SetConnected(v bool) {
	l.mu.Lock()
	l.connected = v
	l.mu.Unlock()
}

// Hide 让某个特征查找失败
func (l *Link) Hide(uuid string) {
	l.mu.Lock()
	l.missing[uuid] = true
	l.mu.Unlock()
}

// Tx 下行命令特征
func (l *Link) Tx() *Characteristic { return l.chars[camera.ControlTxCharUUID] }

// Rx 上行通知特征
func (l *Link) Rx() *Characteristic { return l.chars[camera.ControlRxCharUUID] }

// Status 相机状态特征（绑定）
func (l *Link) Status() *Characteristic { return l.chars[camera.CameraStatusUUID] }

// Characteristic 假特征
type Characteristic struct {
	uuid string

	mu        sync.Mutex
	writes    [][]byte
	writeErr  error
	notifying bool
	notifyErr error
	subs      map[int]func([]byte)
	nextSub   int
	written   chan struct{}
}

func (c *Characteristic) Write(_ context.Context, b []byte) error {
	c.mu.Lock()
	if c.writeErr != nil {
		err := c.writeErr
		c.mu.Unlock()
		return err
	}
	c.writes = append(c.writes, append([]byte(nil), b...))
	ch := c.written
	c.mu.Unlock()
	if ch != nil {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (c *Characteristic) StartNotify(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notifyErr != nil {
		return c.notifyErr
	}
	c.notifying = true
	return nil
}

func (c *Characteristic) Subscribe(fn func([]byte)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs == nil {
		c.subs = make(map[int]func([]byte))
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Notify 向所有订阅者同步投递一条通知
func (c *Characteristic) Notify(b []byte) {
	c.mu.Lock()
	subs := make([]func([]byte), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(b)
	}
}

// Writes 已写入的数据副本
func (c *Characteristic) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

// FailWrites 之后的写入均返回 err；nil 恢复
func (c *Characteristic) FailWrites(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

// FailNotify StartNotify 返回 err
func (c *Characteristic) FailNotify(err error) {
	c.mu.Lock()
	c.notifyErr = err
	c.mu.Unlock()
}

// Notifying 是否已打开通知
func (c *Characteristic) Notifying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notifying
}

// Subscribers 当前订阅者数
func (c *Characteristic) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// WrittenSignal 每次成功写入后发出信号（带缓冲，不阻塞写入方）
func (c *Characteristic) WrittenSignal() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.written == nil {
		c.written = make(chan struct{}, 64)
	}
	return c.written
}
