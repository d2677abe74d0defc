package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wishrank/internal/engine"
	"github.com/roach88/wishrank/internal/insertion"
	"github.com/roach88/wishrank/internal/item"
)

// rankResult is the final document of a rank run.
type rankResult struct {
	Status     string     `json:"status"` // committed | manual | cancelled
	Item       *item.Item `json:"item,omitempty"`
	Position   int        `json:"position,omitempty"`
	Rebalanced bool       `json:"rebalanced,omitempty"`
}

func (r rankResult) RenderText(w io.Writer) {
	switch r.Status {
	case "cancelled":
		fmt.Fprintln(w, "Cancelled. Nothing was added.")
	case "manual":
		fmt.Fprintf(w, "Added %q at the bottom (key %s).\n", r.Item.Title, r.Item.Key)
	default:
		fmt.Fprintf(w, "Added %q at position %d (key %s).\n", r.Item.Title, r.Position, r.Item.Key)
		if r.Rebalanced {
			fmt.Fprintln(w, "The list was rebalanced.")
		}
	}
}

// NewRankCommand creates the rank command.
func NewRankCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rank <list> <title>",
		Short: "Place a new item by answering comparison questions",
		Long: `Place a new item with a binary-insertion dialogue.

Each question compares the new item with one already on the list:
  y  the new item is more important
  n  the existing item is more important
  u  undo the last answer
  c  cancel without adding anything

Once the position is found you confirm it (y), take back the last
answer (u) or cancel (c).

If the list changes while you answer, you can restart against the new
list (r) or add the item at the bottom (m).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			w := &wizard{
				engine: a.engine,
				in:     bufio.NewScanner(cmd.InOrStdin()),
				out:    a.out.PromptWriter(),
			}
			res, err := w.run(cmd.Context(), args[0], args[1])
			if err != nil {
				return a.out.Fail("ranking failed", err)
			}
			return a.out.Success(res)
		},
	}
}

// errInputClosed ends a wizard whose input ran out mid-dialogue.
var errInputClosed = errors.New("input closed before the item was placed")

// wizard drives a ranking session over line-based input.
type wizard struct {
	engine *engine.Engine
	in     *bufio.Scanner
	out    io.Writer
}

// ask prints prompt and returns the first letter of the next non-empty
// answer, lowercased.
func (w *wizard) ask(prompt string) (string, error) {
	for {
		fmt.Fprint(w.out, prompt)
		if !w.in.Scan() {
			if err := w.in.Err(); err != nil {
				return "", err
			}
			return "", errInputClosed
		}
		answer := strings.ToLower(strings.TrimSpace(w.in.Text()))
		if answer != "" {
			return answer[:1], nil
		}
	}
}

func (w *wizard) run(ctx context.Context, listID, title string) (rankResult, error) {
	s, err := w.engine.Begin(ctx, listID, title)
	if err != nil {
		return rankResult{}, err
	}

	for {
		switch s.State() {
		case engine.StateComparing:
			cur, _ := s.Current()
			asked, max := s.Progress()
			answer, err := w.ask(fmt.Sprintf("[%d/%d] Is %q more important than %q? [y/n/u/c] ", asked+1, max, title, cur.Title))
			if err != nil {
				s.Cancel()
				return rankResult{}, err
			}
			switch answer {
			case "y":
				err = s.Answer(insertion.ChoiceNew)
			case "n":
				err = s.Answer(insertion.ChoiceExisting)
			case "u":
				err = s.Undo()
			case "c":
				s.Cancel()
			default:
				fmt.Fprintln(w.out, "Please answer y, n, u or c.")
			}
			if err != nil {
				return rankResult{}, err
			}

		case engine.StateFinalizing:
			idx, _ := s.Index()
			if asked, _ := s.Progress(); asked > 0 {
				answer, err := w.ask(fmt.Sprintf("Place %q at position %d? [y/u/c] ", title, idx+1))
				if err != nil {
					s.Cancel()
					return rankResult{}, err
				}
				switch answer {
				case "y":
				case "u":
					if err := s.Undo(); err != nil {
						return rankResult{}, err
					}
					continue
				case "c":
					s.Cancel()
					continue
				default:
					fmt.Fprintln(w.out, "Please answer y, u or c.")
					continue
				}
			}

			out, err := w.engine.Finalize(ctx, s)
			if err != nil {
				return rankResult{}, err
			}
			if out.Status == engine.OutcomeCommitted {
				return rankResult{Status: "committed", Item: &out.Item, Position: idx + 1, Rebalanced: out.Rebalanced}, nil
			}

			fmt.Fprintf(w.out, "The list changed while you were answering; it now has %d items.\n", len(out.Conflict.Fresh))
			next, manual, err := w.resolveConflict(ctx, out.Conflict)
			if err != nil {
				return rankResult{}, err
			}
			if manual != nil {
				return rankResult{Status: "manual", Item: manual}, nil
			}
			s = next

		case engine.StateCancelled:
			return rankResult{Status: "cancelled"}, nil

		default:
			return rankResult{}, fmt.Errorf("unexpected session state %s", s.State())
		}
	}
}

// resolveConflict asks how to proceed after a conflict: restart returns a new
// session, manual inserts at the bottom and returns the item.
func (w *wizard) resolveConflict(ctx context.Context, c *engine.Conflict) (*engine.Session, *item.Item, error) {
	for {
		answer, err := w.ask("[r]estart with the current list or add [m]anually at the bottom? ")
		if err != nil {
			return nil, nil, err
		}
		switch answer {
		case "r":
			return w.engine.Restart(c), nil, nil
		case "m":
			it, err := w.engine.FallbackManual(ctx, c, nil)
			if err != nil {
				return nil, nil, err
			}
			return nil, &it, nil
		default:
			fmt.Fprintln(w.out, "Please answer r or m.")
		}
	}
}
