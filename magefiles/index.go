//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Index loads the result files into the SQLite index under data/index/.
func Index() error {
	mg.Deps(Init, Build)
	return sh.RunV(binPath, "index", "build")
}
