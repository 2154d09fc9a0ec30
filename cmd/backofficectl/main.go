// Command backofficectl runs the operational tasks of the back-office engine:
// schema migrations, schema verification, reconciliation passes and token issue.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
