package main

import (
	"os"

	"github.com/docsmith/llmkeys/cmd/llmkeys/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
