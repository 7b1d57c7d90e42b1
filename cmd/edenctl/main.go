// Command edenctl runs Eden operations in-process against the configured
// store: importing URLs and bookmark files, searching, asking questions and
// issuing bookmarklet tokens.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
