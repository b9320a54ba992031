package main

import (
	"os"

	"github.com/Laimiu-debug/quantscan/cmd/quantscan/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
