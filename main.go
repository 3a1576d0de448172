package main

import (
	"os"

	"github.com/tirgul/tirgul/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
