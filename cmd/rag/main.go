package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/doeshing/rag-go/internal/infrastructure/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	root := cli.NewRootCmd(cli.Options{})
	err := root.ExecuteContext(ctx)
	stop()

	if err != nil {
		cli.RenderError(os.Stderr, err)
		os.Exit(1)
	}
}
