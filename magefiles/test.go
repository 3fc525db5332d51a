//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Test mg.Namespace

// All vets and runs every test.
func (Test) All() error {
	mg.Deps(Test.Vet)
	return sh.RunV(mg.GoCmd(), "test", "./...")
}

// Race runs the meshing engine tests with the race detector.
func (Test) Race() error {
	env := map[string]string{"CGO_ENABLED": "1"}
	return sh.RunWithV(env, mg.GoCmd(), "test", "-race", "./voxrender/...", "./command/...")
}

// Vet runs go vet.
func (Test) Vet() error {
	return sh.Run(mg.GoCmd(), "vet", "./...")
}
