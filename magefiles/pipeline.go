//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Sync builds the CLI and runs one drive-to-notion sync.
func Sync() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "sync")
}

// Watch builds the CLI and keeps syncing until interrupted.
func Watch() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "sync", "--watch")
}

// Status prints the ledger summary.
func Status() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "status")
}
