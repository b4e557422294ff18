//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Extract builds the CLI and writes data/minimal_dataset.json from the result files in data/.
func Extract() error {
	mg.Deps(Init, Build)
	return sh.RunV(binPath, "extract")
}

// Check reports listed models missing from the result files.
func Check() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "check")
}
