// Command oql parses and validates object queries and serves the query REPL.
package main

import (
	"os"

	"github.com/matthewbaird/oql/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
