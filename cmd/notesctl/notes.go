package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/subaccounts/notes-server/internal/domain"
	"github.com/subaccounts/notes-server/internal/notes"
	"github.com/subaccounts/notes-server/internal/search"
	"github.com/subaccounts/notes-server/internal/service"
)

func newNotesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "List, search and delete notes",
	}

	var account string
	cmd.PersistentFlags().StringVar(&account, "account", "", "Account address (empty means anonymous)")

	var (
		scope string
		limit int
	)
	searchCmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Full-text search over the notes the account can see",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.listNotes(cmd, func(ctx context.Context, repo *notes.Repository) ([]domain.Note, error) {
				index, err := search.NewIndex(opts.log())
				if err != nil {
					return nil, err
				}
				defer index.Close()

				svc := service.NewSearchService(index, repo, opts.log())
				if err := svc.Reindex(ctx); err != nil {
					return nil, err
				}
				res, err := svc.Search(ctx, account, strings.Join(args, " "), search.Scope(scope), limit)
				if err != nil {
					return nil, err
				}
				return res.Notes, nil
			})
		},
	}
	searchCmd.Flags().StringVar(&scope, "scope", string(search.ScopeVisible), "visible, mine or public")
	searchCmd.Flags().IntVar(&limit, "limit", search.DefaultLimit, "Maximum notes shown")

	cmd.AddCommand(
		searchCmd,
		&cobra.Command{
			Use:   "list",
			Short: "List the account's own notes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return opts.listNotes(cmd, func(ctx context.Context, repo *notes.Repository) ([]domain.Note, error) {
					return repo.ListMine(ctx, account)
				})
			},
		},
		&cobra.Command{
			Use:   "public",
			Short: "List other accounts' public notes as the account sees them",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return opts.listNotes(cmd, func(ctx context.Context, repo *notes.Repository) ([]domain.Note, error) {
					return repo.ListPublicOthers(ctx, account)
				})
			},
		},
		&cobra.Command{
			Use:   "delete [id]",
			Short: "Delete one of the account's notes",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				kv, err := opts.openStore()
				if err != nil {
					return err
				}
				defer kv.Close()

				if err := opts.repository(kv).Delete(cmd.Context(), args[0], account); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Note deleted: %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func (o *rootOptions) listNotes(cmd *cobra.Command, list func(context.Context, *notes.Repository) ([]domain.Note, error)) error {
	kv, err := o.openStore()
	if err != nil {
		return err
	}
	defer kv.Close()

	found, err := list(cmd.Context(), o.repository(kv))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if o.json {
		return writeJSON(out, found)
	}

	if len(found) == 0 {
		fmt.Fprintln(out, "No notes")
		return nil
	}
	for _, n := range found {
		flags := ""
		if n.IsPublic {
			flags = " [public]"
		}
		if n.PublicPrice != "" {
			flags += " [" + n.PublicPrice + " ETH]"
		}
		if n.Unlocked {
			flags += " [unlocked]"
		}
		updated := time.UnixMilli(n.Updated).Format(time.DateTime)
		fmt.Fprintf(out, "%s  %s  %s by %s%s\n", n.ID, updated, n.Title, n.DisplayAuthor(), flags)
	}
	return nil
}
