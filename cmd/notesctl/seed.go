package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var forAccount string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the sample public notes",
		Long: `seed stores the sample public notes that are not present yet.
With --for it also adds the demo notes to that account's own notes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kv, err := opts.openStore()
			if err != nil {
				return err
			}
			defer kv.Close()

			repo := opts.repository(kv)
			if err := repo.SeedPublicSamples(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sample public notes stored")

			if cmd.Flags().Changed("for") {
				added, err := repo.AddSamples(cmd.Context(), forAccount)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %d demo notes for %s\n", len(added), forAccount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&forAccount, "for", "", "Also add the demo notes to this account")
	return cmd
}
