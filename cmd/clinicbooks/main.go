package main

import (
	"os"

	"github.com/clinicbooks/clinicbooks/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
