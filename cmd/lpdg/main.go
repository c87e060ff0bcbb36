// Package main implements the line-level program dependence graph CLI (lpdg).
// It builds dependence graphs for single functions and answers slicing,
// dependency and variable-write queries over them.
package main

import (
	"os"

	"github.com/l3aro/linepdg/cmd/lpdg/commands"
)

var version = "dev"

func main() {
	commands.RootCmd.Version = version
	commands.RootCmd.SetVersionTemplate(`lpdg version {{.Version}}
`)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
