package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmcdole/reelcache/internal/catalog"
	"github.com/mmcdole/reelcache/internal/cli"
	"github.com/mmcdole/reelcache/internal/domain"
	"github.com/mmcdole/reelcache/internal/query"
)

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-fetch the catalog from the metadata source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := ctx.ensureCatalog(cmd.Context())
			if err != nil {
				return err
			}
			// A cold cache was just fetched by Init.
			if !ctx.initFetched {
				if err := cat.ForceRefresh(cmd.Context()); err != nil {
					return fmt.Errorf("refresh failed: %w", err)
				}
			}
			cli.NewRenderer(cmd.OutOrStdout(), 0).Refreshed(cat.Len(), cat.LastStats())
			return nil
		},
	}
}

func newGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one cached item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := ctx.ensureCatalog(cmd.Context())
			if err != nil {
				return err
			}
			rec, ok := cat.GetItem(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("%w: %s", domain.ErrItemNotFound, args[0])
			}
			genres, _ := cat.GenresFor(cmd.Context(), rec.ID)
			cli.NewRenderer(cmd.OutOrStdout(), 0).Detail(rec, genres)
			return nil
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var q catalog.ItemsQuery

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Filter, order and page through cached items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if q.SortBy != "" && !query.IsSortField(q.SortBy) {
				return fmt.Errorf("unknown sort field %q (valid: %v)", q.SortBy, query.SortFields)
			}
			if q.Limit < 0 || q.Offset < 0 {
				return errors.New("limit and offset must not be negative")
			}
			cat, err := ctx.ensureCatalog(cmd.Context())
			if err != nil {
				return err
			}
			cli.NewRenderer(cmd.OutOrStdout(), 0).Rows(cat.GetItems(cmd.Context(), q))
			return nil
		},
	}

	cmd.Flags().StringVar(&q.Kind, "kind", "", `Media kind ("tv" matches shows and episodes)`)
	cmd.Flags().StringArrayVar(&q.Genres, "genre", nil, "Genre to match (repeatable, any-of)")
	cmd.Flags().StringArrayVar(&q.ExcludeIDs, "exclude", nil, "Item id to exclude (repeatable)")
	cmd.Flags().IntVar(&q.Limit, "limit", catalog.DefaultLimit, "Maximum items to show")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "Items to skip")
	cmd.Flags().StringVar(&q.SortBy, "sort", "", "Field to sort by, descending")
	cmd.Flags().BoolVar(&q.Random, "random", false, "Shuffle instead of sorting")
	return cmd
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var fuzzy bool

	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search cached titles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := ctx.ensureCatalog(cmd.Context())
			if err != nil {
				return err
			}
			r := cli.NewRenderer(cmd.OutOrStdout(), 0)
			if fuzzy {
				r.Matches(cat.FuzzySearch(cmd.Context(), args[0], limit))
				return nil
			}
			r.Rows(cat.Search(cmd.Context(), args[0], limit))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", catalog.DefaultSearchLimit, "Maximum results")
	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "Rank by fuzzy similarity instead of substring match")
	return cmd
}

func newGenresCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "genres [term]",
		Short: "List cached genres, or resolve a term to known genres",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := ctx.ensureCatalog(cmd.Context())
			if err != nil {
				return err
			}
			r := cli.NewRenderer(cmd.OutOrStdout(), 0)
			if len(args) == 1 {
				r.List(cat.ResolveGenre(cmd.Context(), args[0]))
				return nil
			}
			r.List(cat.Genres(cmd.Context()))
			return nil
		},
	}
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the cache fresh until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := ctx.ensureCatalog(cmd.Context())
			if err != nil {
				return err
			}
			interval := ctx.config.Cache.WatchInterval()
			fmt.Fprintln(cmd.OutOrStdout(), cli.DimStyle.Render(
				fmt.Sprintf("Watching %d items, checking every %s", cat.Len(), interval)))
			err = cat.AutoRefresh(cmd.Context(), interval)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
