package main

import (
	"os"

	"github.com/dalemusser/boirhub/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
