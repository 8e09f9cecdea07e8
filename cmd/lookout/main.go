// Package main provides the lookout command: a loopback server that drives an
// embedded browser view on behalf of local agents.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
