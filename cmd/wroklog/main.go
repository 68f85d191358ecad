package main

import (
	"github.com/balkashynov/wroklog/internal/apperr"
	"github.com/balkashynov/wroklog/internal/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersion(version, commit, date)
	if err := commands.Execute(); err != nil {
		apperr.Fatal(err)
	}
}
