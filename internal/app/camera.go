package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/camera-bridge/internal/bcs"
	"github.com/taoyao-code/camera-bridge/internal/camera"
	cfgpkg "github.com/taoyao-code/camera-bridge/internal/config"
	"github.com/taoyao-code/camera-bridge/internal/scene"
	"github.com/taoyao-code/camera-bridge/internal/session"
)

// Dialer 建立到相机的 BLE 链路
type Dialer interface {
	Connect(ctx context.Context, address string) (camera.Link, error)
}

// DialerFunc 函数适配
type DialerFunc func(ctx context.Context, address string) (camera.Link, error)

func (f DialerFunc) Connect(ctx context.Context, address string) (camera.Link, error) {
	return f(ctx, address)
}

// closer 可主动断开的链路（BlueZ 设备）
type closer interface {
	Close(ctx context.Context) error
}

// ListenerFactory 为相机生成一个监听者
type ListenerFactory func(camera string) *bcs.Listener

// CameraSupervisor 维护单台相机的连接：连接 -> 绑定 -> 注册监听 -> 打开通知 -> 应用场景 -> 登记会话，
// 链路断开后解绑并按间隔重连
type CameraSupervisor struct {
	cam        cfgpkg.CameraConfig
	bt         cfgpkg.BluetoothConfig
	dialer     Dialer
	sessions   *session.Manager
	scenes     *scene.Library
	clientOpts []camera.Option
	listeners  []ListenerFactory
	onDown     func(camera string)
	logger     *zap.Logger

	interval time.Duration
}

// NewCameraSupervisor clientOpts 透传给 camera.New
func NewCameraSupervisor(
	cam cfgpkg.CameraConfig,
	bt cfgpkg.BluetoothConfig,
	dialer Dialer,
	sessions *session.Manager,
	scenes *scene.Library,
	logger *zap.Logger,
	clientOpts ...camera.Option,
) *CameraSupervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scenes == nil {
		scenes = scene.NewLibrary()
	}
	interval := bt.ReconnectInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &CameraSupervisor{
		cam:        cam,
		bt:         bt,
		dialer:     dialer,
		sessions:   sessions,
		scenes:     scenes,
		clientOpts: clientOpts,
		logger:     logger.With(zap.String("camera", cam.Name), zap.String("address", cam.Address)),
		interval:   interval,
	}
}

// AddListeners 每个工厂在连接后为全部上报地址注册一个监听者
func (s *CameraSupervisor) AddListeners(fns ...ListenerFactory) {
	s.listeners = append(s.listeners, fns...)
}

// OnDisconnect 链路断开后的回调
func (s *CameraSupervisor) OnDisconnect(fn func(camera string)) { s.onDown = fn }

// Run 阻塞运行直到 ctx 结束
func (s *CameraSupervisor) Run(ctx context.Context) {
	s.logger.Info("camera supervisor started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var link camera.Link
	for {
		if link == nil {
			l, err := s.connect(ctx)
			if err != nil {
				s.logger.Warn("camera connect failed", zap.Error(err))
			} else {
				link = l
			}
		} else if !link.Connected() {
			s.logger.Warn("camera link lost")
			s.teardown(link)
			link = nil
			continue
		}

		select {
		case <-ctx.Done():
			if link != nil {
				s.teardown(link)
			}
			s.logger.Info("camera supervisor stopped")
			return
		case <-ticker.C:
		}
	}
}

// connect 成功时客户端已绑定到会话表
func (s *CameraSupervisor) connect(ctx context.Context) (camera.Link, error) {
	cctx := ctx
	if s.bt.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, s.bt.ConnectTimeout)
		defer cancel()
	}

	link, err := s.dialer.Connect(cctx, s.cam.Address)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	opts := append([]camera.Option{
		camera.WithName(s.cam.Name),
		camera.WithLogger(s.logger),
	}, s.clientOpts...)
	client, err := camera.New(link, opts...)
	if err != nil {
		closeLink(link)
		return nil, err
	}

	if s.bt.BondOnConnect {
		// 已配对的相机可能拒绝再次写入，不影响后续控制
		if err := client.Bond(cctx); err != nil {
			s.logger.Warn("bond on connect failed", zap.Error(err))
		}
	}

	for _, fn := range s.listeners {
		l := fn(s.cam.Name)
		for _, addr := range bcs.ReportedAddresses {
			client.AddListener(addr, l)
		}
	}

	if err := client.StartNotifications(cctx); err != nil {
		client.Close()
		closeLink(link)
		return nil, err
	}

	if s.cam.Scene != "" {
		sc, err := s.scenes.Get(s.cam.Scene)
		if err != nil {
			s.logger.Warn("configured scene unavailable", zap.Error(err))
		} else {
			scene.Apply(client, sc)
			s.logger.Info("scene applied", zap.String("scene", sc.Name))
		}
	}

	s.sessions.Bind(s.cam.Name, client)
	s.logger.Info("camera connected", zap.String("client_id", client.ID()))
	return link, nil
}

func (s *CameraSupervisor) teardown(link camera.Link) {
	s.sessions.Unbind(s.cam.Name)
	closeLink(link)
	if s.onDown != nil {
		s.onDown(s.cam.Name)
	}
}

func closeLink(link camera.Link) {
	c, ok := link.(closer)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.Close(ctx)
}
