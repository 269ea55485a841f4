package main

import (
	"os"

	"github.com/Makepad-fr/cities/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
