package main

import (
	"os"

	"rentchain/cmd/rentctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
