package command

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vertixec/THEARCHIVE/internal/aggregator"
	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	"github.com/vertixec/THEARCHIVE/internal/filter"
	"github.com/vertixec/THEARCHIVE/internal/interfaces/http/handlers"
	"github.com/vertixec/THEARCHIVE/internal/views"
	"github.com/vertixec/THEARCHIVE/pkg/api"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <view>",
		Short: "List a collection",
		Long:  "List one of the views: main, systems, community, workflows or favorites.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := catalog.ParseViewKind(args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return runList(cmd, kind)
		},
	}
	addFilterFlags(cmd)
	return cmd
}

// NewFavoritesCmd creates the favorites command.
func NewFavoritesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "List liked items across every collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, catalog.ViewFavorites)
		},
	}
	addFilterFlags(cmd)
	return cmd
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("filter", filter.All, "show only items in this facet")
	cmd.Flags().StringP("query", "q", "", "case-insensitive search over the searchable fields")
}

func runList(cmd *cobra.Command, kind catalog.ViewKind) error {
	ctx, err := GetContext(cmd)
	if err != nil {
		return writeCommandError(cmd, err)
	}
	defer ctx.Close()

	typeFilter, _ := cmd.Flags().GetString("filter")
	query, _ := cmd.Flags().GetString("query")

	c, err := loadCollection(cmd.Context(), ctx, kind)
	if err != nil {
		return writeCommandError(cmd, err)
	}
	defer c.Close()

	resp := handlers.BuildCollectionResponse(ctx.Engine, kind, c, filter.State{TypeFilter: typeFilter, SearchQuery: query})

	if ctx.JSONMode {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(resp)
	}
	printCollection(cmd, resp)
	return nil
}

// loadCollection mounts a view and waits for its first load.
func loadCollection(parent context.Context, ctx *CommandContext, kind catalog.ViewKind) (*views.Collection, error) {
	c := ctx.Engine.UseCollection(parent, aggregator.SourceSpec{View: kind})

	waitCtx, cancel := context.WithTimeout(parent, ctx.Config.Store.Timeout)
	defer cancel()
	if err := c.Wait(waitCtx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.Err(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func printCollection(cmd *cobra.Command, resp api.CollectionResponse) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s [%s] %d/%d\n", strings.ToUpper(resp.View), resp.Status, len(resp.Items), resp.Total)
	fmt.Fprintf(out, "Facets: %s\n\n", strings.Join(resp.Facets, " | "))

	if len(resp.Items) == 0 {
		fmt.Fprintln(out, "No items.")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tTYPE\tID\tFACET\tTITLE\tDETAIL")
	for _, item := range resp.Items {
		mark := " "
		if item.Liked {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			mark, item.ItemType, item.ID, item.Facet, item.Labels.Title, item.Labels.Secondary)
	}
	_ = tw.Flush()
}
