// Command prismctl is an operator CLI over a prismbuffer managed
// directory: push/pop items, inspect catalog records, and reconcile the
// catalog against the blob directory.
package main

import (
	"os"

	"github.com/calvinalkan/prismbuffer/internal/prismcli"
)

func main() {
	os.Exit(prismcli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args))
}
