package main

import (
	"os"

	_ "github.com/KOFI-GYIMAH/gitsync/docs"
)

// @title GitSync Service
// @version 1.0.0
// @description Attributes git commits to time-bounded posts and writes change summaries back to the record store.
// @BasePath /
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
