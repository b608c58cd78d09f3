// Package main provides notesctl, an offline maintenance tool for the notes
// server's data directory.
//
// Usage:
//
//	notesctl notes list --account 0x1234...
//	notesctl ledger clear --account 0x1234...
//	notesctl seed
//	notesctl inspect --prefix sub-account-transactions-
//
// The server holds an exclusive lock on the data directory; stop it first.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
