//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Build mg.Namespace

// CLI builds the gskel command into bin/.
func (Build) CLI() error {
	return sh.RunV(mg.GoCmd(), "build", "-o", "bin/gskel", "./cmd/gskel")
}

// Example meshes the tubes example and writes tubes.stl.
func (Build) Example() error {
	return sh.RunV(mg.GoCmd(), "run", "./examples/tubes")
}

// Clean removes build outputs and the example mesh.
func (Build) Clean() error {
	for _, path := range []string{"bin", "tubes.stl"} {
		if err := sh.Rm(path); err != nil {
			return err
		}
	}
	return nil
}
