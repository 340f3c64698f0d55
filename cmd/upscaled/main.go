package main

import (
	"os"

	"upscaled/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
