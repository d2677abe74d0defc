package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/wishrank/internal/engine"
	"github.com/roach88/wishrank/internal/item"
	"github.com/roach88/wishrank/internal/key"
	"github.com/roach88/wishrank/internal/store"
)

// writeItems prints items as a table numbered from first.
func writeItems(w io.Writer, items []item.Item, first int) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTITLE\tKEY\tID")
	for i, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", first+i, it.Title, it.Key, it.ID)
	}
	tw.Flush()
}

type itemResult struct {
	Action string    `json:"-"`
	Item   item.Item `json:"item"`
	// Rebalanced is set when the operation triggered an automatic rebalance.
	Rebalanced bool `json:"rebalanced,omitempty"`
}

func (r itemResult) RenderText(w io.Writer) {
	fmt.Fprintf(w, "%s %q (%s) at key %s\n", r.Action, r.Item.Title, r.Item.ID, r.Item.Key)
	if r.Rebalanced {
		fmt.Fprintln(w, "The list was rebalanced.")
	}
}

type pageResult struct {
	store.Page
}

func (r pageResult) RenderText(w io.Writer) {
	if len(r.Items) == 0 {
		fmt.Fprintln(w, "No items.")
		return
	}
	writeItems(w, r.Items, 1)
	if r.NextCursor != nil {
		fmt.Fprintf(w, "More items: --cursor %s\n", *r.NextCursor)
	}
}

type deleteResult struct {
	ListID string `json:"list_id"`
	ID     string `json:"id"`
}

func (r deleteResult) RenderText(w io.Writer) {
	fmt.Fprintf(w, "Deleted %s from %s\n", r.ID, r.ListID)
}

type rebalanceResult struct {
	ListID string `json:"list_id"`
	engine.RebalanceResult
}

func (r rebalanceResult) RenderText(w io.Writer) {
	fmt.Fprintf(w, "Rebalanced %d items in %s (%d keys changed)\n", r.RebalancedCount, r.ListID, r.Changed)
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	var rawKey string

	cmd := &cobra.Command{
		Use:   "add <list> <title>",
		Short: "Add an item at an explicit key or at the bottom",
		Long: `Add an item without ranking it.

Without --key the item goes to the bottom of the list. Use "wishrank rank"
to place it by comparison instead.

Example:
  wishrank add wishes "new bike"
  wishrank add wishes "concert tickets" --key 5000`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var k *key.Key
			if rawKey != "" {
				parsed, err := key.Parse(rawKey)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --key", err)
				}
				k = &parsed
			}

			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			it, err := a.engine.Create(cmd.Context(), args[0], args[1], k)
			if err != nil {
				return a.out.Fail("failed to add item", err)
			}
			return a.out.Success(itemResult{Action: "Added", Item: it})
		},
	}

	cmd.Flags().StringVar(&rawKey, "key", "", "explicit decimal key (default: bottom of the list)")
	return cmd
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		cursor string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list <list>",
		Short: "Show one page of a list, most important first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			page, err := a.engine.List(cmd.Context(), args[0], cursor, limit)
			if err != nil {
				return a.out.Fail("failed to list items", err)
			}
			return a.out.Success(pageResult{Page: page})
		},
	}

	cmd.Flags().StringVar(&cursor, "cursor", "", "continue after this cursor")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "page size (default from config, clamped to the maximum)")
	return cmd
}

// NewMoveCommand creates the move command.
func NewMoveCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		pos         engine.Position
		top, bottom bool
	)

	cmd := &cobra.Command{
		Use:   "move <list> <id>",
		Short: "Move an item next to other items or to an edge",
		Long: `Move one item. Only its key changes.

--above names the item that should end up directly above the moved one,
--below the item directly below. Give one or both, or --top / --bottom.

Example:
  wishrank move wishes 0190f1c2-... --above 0190f1c3-...
  wishrank move wishes 0190f1c2-... --top`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case top && bottom:
				return NewExitError(ExitCommandError, "--top and --bottom are mutually exclusive")
			case top:
				pos.Edge = engine.EdgeTop
			case bottom:
				pos.Edge = engine.EdgeBottom
			}

			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.Move(cmd.Context(), args[0], args[1], pos)
			if err != nil {
				return a.out.Fail("failed to move item", err)
			}
			return a.out.Success(itemResult{Action: "Moved", Item: res.Item, Rebalanced: res.Rebalanced})
		},
	}

	cmd.Flags().StringVar(&pos.AboveID, "above", "", "id of the item that should be directly above")
	cmd.Flags().StringVar(&pos.BelowID, "below", "", "id of the item that should be directly below")
	cmd.Flags().BoolVar(&top, "top", false, "move to the top of the list")
	cmd.Flags().BoolVar(&bottom, "bottom", false, "move to the bottom of the list")
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <list> <id>",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.Delete(cmd.Context(), args[0], args[1]); err != nil {
				return a.out.Fail("failed to delete item", err)
			}
			return a.out.Success(deleteResult{ListID: args[0], ID: args[1]})
		},
	}
}

// NewRebalanceCommand creates the rebalance command.
func NewRebalanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rebalance <list>",
		Short: "Respace all keys of a list evenly, keeping its order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.Rebalance(cmd.Context(), args[0])
			if err != nil {
				return a.out.Fail("failed to rebalance", err)
			}
			return a.out.Success(rebalanceResult{ListID: args[0], RebalanceResult: res})
		},
	}
}
