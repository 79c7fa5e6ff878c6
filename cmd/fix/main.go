package main

import (
	"os"

	"github.com/animeshkundu/fix/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
