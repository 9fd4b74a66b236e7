package main

import (
	"context"
	"fmt"
	"os"

	"github.com/craftsmart/escrow-service/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(nil).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
