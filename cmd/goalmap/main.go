package main

import (
	"os"

	"github.com/goalmap/goalmap/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
