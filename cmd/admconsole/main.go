package main

import (
	"context"
	"fmt"
	"os"

	"github.com/imoveisdeluxo/admsession/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "admconsole:", err)
		os.Exit(1)
	}
}
