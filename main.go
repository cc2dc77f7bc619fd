// Package main is the entry point of the safeupdate CLI.
package main

import (
	"github.com/huangsam/safeupdate/cmd"
	"github.com/huangsam/safeupdate/internal/contract"
)

func main() {
	if err := cmd.Execute(); err != nil {
		contract.LogFatal("Error running safeupdate", err)
	}
}
