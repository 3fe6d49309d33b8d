// Command examlint checks exam and interview documents produced by the
// generation prompts without running the server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
