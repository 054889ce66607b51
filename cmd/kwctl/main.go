// kwctl is the operator CLI for the keyword intelligence engine.
package main

import (
	"os"

	"kwintel/cmd/kwctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
