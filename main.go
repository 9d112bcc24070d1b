// main is the entry point for the actimerge CLI.
package main

import (
	"fmt"
	"os"

	"github.com/huangsam/actimerge/cmd"
)

func main() {
	err := cmd.Execute()
	if stopErr := cmd.Shutdown(); stopErr != nil {
		_, _ = fmt.Fprintln(os.Stderr, "⚠️ ", stopErr)
	}
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
