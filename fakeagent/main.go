package main

import (
	"context"
	"fakeagent/fakeagent/config"
	"fakeagent/fakeagent/server"
	"fakeagent/fakeagent/utils/logging"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogDir)
	defer logging.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv, err := server.New(ctx, cfg)
	if err != nil {
		logging.ErrorLogger.Error("server setup error", zap.Error(err))
		logging.Sync()
		os.Exit(1)
	}
	if err := srv.Run(); err != nil {
		logging.ErrorLogger.Error("server listen error", zap.Error(err))
		logging.Sync()
		os.Exit(1)
	}
}
