package main

import (
	"os"

	"github.com/takematch/takematch/cmd/takematch/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
