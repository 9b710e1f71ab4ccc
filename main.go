package main

import (
	"context"
	"os/signal"
	"syscall"

	"notify-dispatcher/cmd/cli"

	"github.com/wb-go/wbf/zlog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("notify-dispatcher failed")
	}
}
