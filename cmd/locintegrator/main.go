// LocIntegrator - merges PTM localization results into DTASelect reports
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/LocIntegrator/cmd/locintegrator/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
