// Package main implements the diagast CLI.
// It converts architecture diagrams into a canonical AST and provides
// rendering, rule extraction, and quality-gate commands over it.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/archsight/diagast/cmd/diagast/commands"
)

var version = "dev"

func main() {
	// optional .env for DIAGAST_* overrides; absence is fine
	_ = godotenv.Load()

	commands.RootCmd.Version = version
	commands.RootCmd.SetVersionTemplate(`diagast version {{.Version}}
`)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
