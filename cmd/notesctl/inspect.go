package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// keyInfo is one raw store entry.
type keyInfo struct {
	Key  string `json:"key"`
	Size int    `json:"size"`
}

func newInspectCmd(opts *rootOptions) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List raw store keys and value sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kv, err := opts.openStore()
			if err != nil {
				return err
			}
			defer kv.Close()

			ctx := cmd.Context()
			keys, err := kv.Keys(ctx, prefix)
			if err != nil {
				return err
			}

			infos := make([]keyInfo, 0, len(keys))
			for _, key := range keys {
				value, _, err := kv.Read(ctx, key)
				if err != nil {
					return err
				}
				infos = append(infos, keyInfo{Key: key, Size: len(value)})
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, infos)
			}
			for _, info := range infos {
				fmt.Fprintf(out, "%-60s %8d bytes\n", info.Key, info.Size)
			}
			fmt.Fprintf(out, "%d keys\n", len(infos))
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Only keys starting with this prefix")
	return cmd
}
