package main

import (
	"os"

	"github.com/daybook-sh/daybook/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
