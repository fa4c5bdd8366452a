package main

import (
	"os"

	"example.com/activities/cmd/rosterctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
