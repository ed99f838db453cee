// Package types defines the entity values, the file role enum, content
// hashes, handle state, and the error taxonomy shared by the provenance
// ledger and its collaborators.
package types
