package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newLedgerCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Read and clear an account's transaction history",
	}

	var account string
	cmd.PersistentFlags().StringVar(&account, "account", "", "Account address (empty means anonymous)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the account's transactions, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				kv, err := opts.openStore()
				if err != nil {
					return err
				}
				defer kv.Close()

				records, err := opts.ledger(kv).List(cmd.Context(), account)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if opts.json {
					return writeJSON(out, records)
				}
				if len(records) == 0 {
					fmt.Fprintln(out, "No transactions")
					return nil
				}
				for _, r := range records {
					at := time.UnixMilli(r.Timestamp).Format(time.DateTime)
					fmt.Fprintf(out, "%s  %-4s  %s  %s\n", at, r.Type, r.Hash, r.Details)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the account's whole history",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				kv, err := opts.openStore()
				if err != nil {
					return err
				}
				defer kv.Close()

				if err := opts.ledger(kv).Clear(cmd.Context(), account); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Ledger cleared")
				return nil
			},
		},
	)
	return cmd
}
