// Package main is the entry point for the taskarena CLI.
// The CLI is the developer terminal tool for talking to the TaskArena daemon.
package main

import (
	"os"

	"github.com/DevangML/TaskArena/cmd/taskarena/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
