// Package main implements the entry point for the measure API server, which
// accepts guest photo uploads, runs marker detection on them and records
// length and area measurements.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
