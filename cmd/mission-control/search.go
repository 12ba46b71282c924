package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrInvincible29/mission-control/internal/search"
)

var (
	searchLimit   int
	searchReindex bool
)

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the notes index",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}
	cmd.Flags().IntVarP(&searchLimit, "limit", "l", 20, "maximum results")
	cmd.Flags().BoolVar(&searchReindex, "reindex", false, "rebuild the index from the notes directory first")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.SearchIndexPath == "" {
		return errors.New("missing SEARCH_INDEX_PATH")
	}
	ix, err := search.Open(cfg.SearchIndexPath)
	if err != nil {
		return err
	}
	defer ix.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if searchReindex {
		if cfg.NotesDir == "" {
			return errors.New("missing NOTES_DIR")
		}
		n, err := ix.IndexDir(ctx, cfg.NotesDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents\n", n)
	}

	hits, err := ix.Search(ctx, args[0], searchLimit)
	if err != nil {
		return err
	}
	for _, h := range hits {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n    %s\n", h.Path, h.Title, h.Snippet)
	}
	return nil
}
