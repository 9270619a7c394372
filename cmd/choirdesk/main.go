package main

import (
	"context"
	"os"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/cli"
	appLog "github.com/Nhatnguyen0000/Choir-sub000/internal/log"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		appLog.Error("choirdesk failed", err)
		os.Exit(1)
	}
}
