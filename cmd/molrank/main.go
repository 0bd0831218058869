// molrank is the command-line front end for offline ranking and polygon
// overlap analysis.
package main

import (
	"os"

	"github.com/turtacn/molrank/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
