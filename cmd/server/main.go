package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"interior-ledger/internal/config"
	"interior-ledger/internal/database"
	"interior-ledger/internal/handlers"
	"interior-ledger/internal/logger"
	"interior-ledger/internal/payments"
	"interior-ledger/internal/realtime"
	"interior-ledger/internal/server"
	"interior-ledger/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer zl.Sync()

	if err := database.Init(cfg, zl); err != nil {
		zl.Fatal("database init failed", zap.Error(err))
	}

	signer := storage.NewURLSigner(cfg.StorageURLSecret, time.Now)
	blobs, err := storage.NewLocalStore(cfg.StorageDir, cfg.PublicBaseURL, signer)
	if err != nil {
		zl.Fatal("storage init failed", zap.Error(err))
	}

	var (
		publisher realtime.Publisher = realtime.Nop{}
		events    handlers.EventSubscriber
	)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	rdb := realtime.Connect(ctx, cfg.RedisAddr, zl)
	cancel()
	if rdb != nil {
		defer rdb.Close()
		bus := realtime.NewRedisBus(rdb)
		publisher = bus
		events = bus
	}

	svc := payments.NewService(database.NewLedgerStore(database.DB), blobs, publisher, zl, payments.Config{
		ProofURLTTL: cfg.ProofURLTTL,
		Audit:       database.CreateProjectAuditLog,
	})

	gin.SetMode(cfg.GinMode)
	r := server.NewRouter(cfg, server.Deps{
		Ledger: handlers.NewLedger(svc, zl),
		Proofs: blobs,
		Events: events,
		Log:    zl,
	})

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	zl.Info("starting server", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		zl.Fatal("server error", zap.Error(err))
	}
}
