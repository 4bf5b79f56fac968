package main

import (
	"os"
	"time"
)

func main() {
	root := newRootCommand(os.Stdout, os.Stderr, time.Now)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
