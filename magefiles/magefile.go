//go:build mage

// Package main provides build targets for the provenance project using Mage.
//
// Usage:
//
//	mage build          Compile the prov binary to bin/
//	mage test:all       Run all tests
//	mage test:unit      Run tests without the architecture check
//	mage test:postgres  Run ledger tests against PROV_TEST_POSTGRES_DSN
//	mage lint           Run golangci-lint
//	mage clean          Remove build artifacts
//	mage install        Install prov to GOPATH/bin
//	mage stats          Print Go LOC and documentation word counts
package main
