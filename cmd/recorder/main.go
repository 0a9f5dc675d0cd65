package main

import (
	"os"

	"github.com/grovetools/recorder/cli"
	"github.com/grovetools/recorder/cmd"
)

func main() {
	os.Exit(cli.Execute(cmd.NewRootCmd()))
}
