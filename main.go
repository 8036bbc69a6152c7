package main

import (
	"os"

	"github.com/aarsakian/DiskTree/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
