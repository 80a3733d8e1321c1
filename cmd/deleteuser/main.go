package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chat-backend/internal/admin"
	"chat-backend/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := admin.Run(ctx, os.Args[1:], os.Stdout, os.Stderr, admin.Defaults{
		Driver:    cfg.DBDriver,
		DSN:       cfg.DBDSN,
		AvatarDir: cfg.AvatarDir,
		ChunkSize: cfg.CascadeChunkSize,
	})
	stop()
	os.Exit(code)
}
