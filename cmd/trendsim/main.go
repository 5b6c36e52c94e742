package main

import (
	"os"

	"github.com/rustyeddy/trendsim/cmd/trendsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
