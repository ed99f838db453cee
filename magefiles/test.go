//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const postgresEnv = "PROV_TEST_POSTGRES_DSN"

// Test groups test targets (all, unit, postgres).
type Test mg.Namespace

// All runs all tests.
func (Test) All() error {
	return sh.RunV(binGo, "test", "./...")
}

// Unit runs the tests with -short, skipping the package-graph check that
// loads the whole module.
func (Test) Unit() error {
	return sh.RunV(binGo, "test", "-short", "./...")
}

// Postgres runs the storage and ledger tests against the server named by
// PROV_TEST_POSTGRES_DSN.
func (Test) Postgres() error {
	if strings.TrimSpace(os.Getenv(postgresEnv)) == "" {
		return fmt.Errorf("%s is not set", postgresEnv)
	}
	return sh.RunV(binGo, "test", "-count=1", "./internal/sqldb/...", "./internal/ledger/...")
}
