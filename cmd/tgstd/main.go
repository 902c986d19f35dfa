package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Johny-1992/TGST/config"
	"github.com/Johny-1992/TGST/core"
	"github.com/Johny-1992/TGST/observability/logging"
	"github.com/Johny-1992/TGST/observability/metrics"
	"github.com/Johny-1992/TGST/rpc"
	"github.com/Johny-1992/TGST/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("TGST_ENV"))
	logger := logging.Setup("tgstd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		logger.Error("invalid engine config", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("create data dir", "error", err)
		os.Exit(1)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	engine, err := core.NewEngine(engineCfg,
		core.WithDatabase(db),
		core.WithEmitter(metrics.NewEmitter()),
	)
	if err != nil {
		logger.Error("assemble engine", "error", err)
		os.Exit(1)
	}
	logger.Info("engine ready",
		"network", cfg.NetworkName,
		"chainId", engineCfg.ChainID,
		"totalSupply", engine.TotalSupply().String(),
		"paused", engine.Paused(),
	)

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           rpc.NewServer(engine, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("rpc listening", "address", cfg.ListenAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("rpc server", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("stopped")
}
