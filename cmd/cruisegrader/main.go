// Package main is the entry point for the cruisegrader CLI.
package main

import (
	"os"

	"github.com/Sankatt/cruisegrader/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
