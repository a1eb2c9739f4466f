package main

import (
	"flag"

	"go.uber.org/zap"

	"github.com/taoyao-code/camera-bridge/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/camera-bridge/internal/config"
	"github.com/taoyao-code/camera-bridge/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，为空时读取 CAM_CONFIG")
	flag.Parse()

	// 1) 加载配置
	cfg, err := cfgpkg.Load(*configPath)
	if err != nil {
		panic(err)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	// 3) 启动并阻塞到退出信号
	if err := bootstrap.Run(cfg, zap.L()); err != nil {
		logger.Fatal("camera bridge exited", zap.Error(err))
	}
}
