// Command prov records research data files and the experiments that
// produce them.
package main

import "github.com/mesh-intelligence/provenance/internal/cli"

func main() {
	cli.Execute()
}
