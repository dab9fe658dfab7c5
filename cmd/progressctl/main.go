package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/taskmaster-backend/internal/cli"
	"github.com/yungbote/taskmaster-backend/internal/platform/shutdown"
)

var Version = "dev"

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	root := cli.NewRootCmd(Version, os.Stdin, os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
