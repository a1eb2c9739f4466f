package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/taoyao-code/camera-bridge/internal/api"
	"github.com/taoyao-code/camera-bridge/internal/app"
	"github.com/taoyao-code/camera-bridge/internal/bluez"
	"github.com/taoyao-code/camera-bridge/internal/camera"
	cfgpkg "github.com/taoyao-code/camera-bridge/internal/config"
	"github.com/taoyao-code/camera-bridge/internal/httpserver"
	"github.com/taoyao-code/camera-bridge/internal/outbound"
	"github.com/taoyao-code/camera-bridge/internal/scene"
	redisstorage "github.com/taoyao-code/camera-bridge/internal/storage/redis"
	"github.com/taoyao-code/camera-bridge/internal/stream"
)

// forwardQueueSize 解码值转发队列长度
const forwardQueueSize = 1024

// Run 统一启动流程：基础组件 -> 下游(redis/mqtt/webhook) -> 蓝牙 -> HTTP -> 相机连接
func Run(cfg *cfgpkg.Config, log *zap.Logger) error {
	log.Info("starting camera bridge",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.Int("cameras", len(cfg.Cameras)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ========== 阶段1: 基础组件 ==========
	appm, metricsHandler := app.NewMetrics()
	scenes, err := scene.Load(cfg.Scenes.Path)
	if err != nil {
		return fmt.Errorf("load scenes: %w", err)
	}
	sessions := app.NewSessionManager(cfg.Bluetooth, appm, log)
	log.Info("basic components initialized", zap.Strings("scenes", scenes.Names()))

	// ========== 阶段2: 下游（可选）==========
	var sinks []app.Sink
	var stateReader api.StateReader

	redisClient, err := app.NewRedisClient(cfg.Redis, log)
	if err != nil {
		log.Error("redis initialization failed", zap.Error(err))
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		store := redisstorage.NewStateStore(redisClient, cfg.Redis.StateTTL)
		sinks = append(sinks, app.NewStateSink(store))
		stateReader = store
	}

	publisher, err := app.NewMQTTPublisher(cfg.MQTT, log)
	if err != nil {
		log.Error("mqtt initialization failed", zap.Error(err))
		return err
	}
	if publisher != nil {
		defer publisher.Close()
		sinks = append(sinks, app.NewMQTTSink(publisher))
	}

	webhook, err := app.NewWebhook(cfg.Webhook, log.With(zap.String("component", "webhook")))
	if err != nil {
		log.Error("webhook initialization failed", zap.Error(err))
		return err
	}
	if webhook != nil {
		sinks = append(sinks, app.NewWebhookSink(webhook))
	}

	forwarder := app.NewForwarder(forwardQueueSize, log.With(zap.String("component", "forwarder")), sinks...)
	forwarder.OnResult(appm.Published)
	var wg sync.WaitGroup
	if len(sinks) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			forwarder.Run(ctx)
		}()
	}

	hub := stream.NewHub(cfg.API.Stream.BufferSize)

	// ========== 阶段3: 蓝牙适配器 ==========
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		log.Error("connect system bus failed", zap.Error(err))
		return fmt.Errorf("connect system bus: %w", err)
	}
	defer conn.Close()
	adapter := bluez.NewAdapter(conn, cfg.Bluetooth.Adapter, log.With(zap.String("component", "bluez")))
	if powered, err := adapter.Powered(ctx); err != nil || !powered {
		log.Warn("bluetooth adapter not ready", zap.String("adapter", cfg.Bluetooth.Adapter), zap.Bool("powered", powered), zap.Error(err))
	}

	// ========== 阶段4: HTTP（非阻塞）==========
	healthAgg := app.NewHealthAggregator(sessions, cfg.Cameras, adapter)
	app.AddRedisChecker(healthAgg, redisClient)
	app.AddMQTTChecker(healthAgg, publisher)

	readyFn := func() bool {
		rctx, rcancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer rcancel()
		return healthAgg.Ready(rctx)
	}
	httpSrv := app.NewHTTPServer(cfg, metricsHandler, readyFn, log.With(zap.String("component", "http")),
		httpserver.WithRoutes(func(r *gin.Engine) {
			app.RegisterHealthRoutes(r, healthAgg)

			var streamHandler *api.StreamHandler
			if cfg.API.Stream.Enabled {
				streamHandler = api.NewStreamHandler(sessions, hub, cfg.API.Stream, appm.StreamClients, log)
			}
			api.RegisterRoutes(r, api.NewCameraHandler(sessions, scenes, stateReader, log), streamHandler, cfg.API.Auth, log)
		}),
	)
	go func() {
		if err := httpSrv.Start(); err != nil {
			log.Error("http server error", zap.Error(err))
		}
	}()

	// ========== 阶段5: 相机连接 ==========
	dialer := app.DialerFunc(func(ctx context.Context, address string) (camera.Link, error) {
		d, err := adapter.Connect(ctx, address)
		if err != nil {
			return nil, err
		}
		return d, nil
	})
	for _, cam := range cfg.Cameras {
		sup := app.NewCameraSupervisor(cam, cfg.Bluetooth, dialer, sessions, scenes, log,
			camera.WithObserver(appm),
			camera.WithCoalescerOptions(
				outbound.WithWindow(cfg.Outbound.Window),
				outbound.WithRateLimiter(outbound.NewRateLimiter(cfg.Outbound.RatePerSec, cfg.Outbound.Burst)),
				outbound.WithWriteTimeout(cfg.Outbound.WriteTimeout),
			),
		)
		sup.AddListeners(sessions.Listener)
		if len(sinks) > 0 {
			sup.AddListeners(forwarder.Listener)
		}
		if cfg.API.Stream.Enabled {
			sup.AddListeners(hub.Listener)
		}
		if publisher != nil {
			sup.OnDisconnect(publisher.Forget)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			sup.Run(ctx)
		}()
	}
	log.Info("all services started, connecting cameras")

	// ========== 阶段6: 等待关闭信号 ==========
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("received shutdown signal, gracefully shutting down...")
	cancel()
	wg.Wait()
	sessions.CloseAll()
	log.Info("cameras disconnected")

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	_ = httpSrv.Shutdown(sctx)
	log.Info("http server stopped")

	delivered, dropped := forwarder.Stats()
	log.Info("shutdown complete", zap.Int64("forwarded", delivered), zap.Int64("dropped", dropped))
	return nil
}
