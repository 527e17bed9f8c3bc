package main

import (
	"os"

	"github.com/pipesearch/pipesearch/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
