//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import "github.com/magefile/mage/sh"

const binLint = "golangci-lint"

// lintPackages lists the packages of this module.
var lintPackages = []string{"./cmd/...", "./internal/...", "./pkg/...", "./magefiles/..."}

// Lint runs go vet and golangci-lint over the prov packages.
func Lint() error {
	if err := sh.RunV(binGo, append([]string{"vet"}, lintPackages...)...); err != nil {
		return err
	}
	return sh.RunV(binLint, append([]string{"run"}, lintPackages...)...)
}
