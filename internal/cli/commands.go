package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Makepad-fr/cities/internal/model"
	"github.com/Makepad-fr/cities/internal/tui"
	"github.com/Makepad-fr/cities/internal/ui"
)

func newListCmd(a *app) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List cities (interactive unless --plain or not a terminal)",
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.list(cmd.Context(), plain)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print a numbered list instead of the interactive view")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "add <name...>",
		Short:   "Add a city (the name can be multiple words)",
		Example: `  cities add "New York"`,
		Args:    usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.add(cmd.Context(), strings.Join(args, " "))
		},
	}
}

func newEditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "edit <index> <name...>",
		Short:   "Rename the city at a 1-based index",
		Example: `  cities edit 2 "Saint Petersburg"`,
		Args:    usageArgs(cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return usageErrorf("edit: not a number: %s", args[0])
			}
			return a.edit(cmd.Context(), n, strings.Join(args[1:], " "))
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <index>",
		Aliases: []string{"delete"},
		Short:   "Delete the city at a 1-based index",
		Args:    usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return usageErrorf("rm: not a number: %s", args[0])
			}
			return a.remove(cmd.Context(), n)
		},
	}
}

// -------------- subcommand impls ----------------

func (a *app) list(ctx context.Context, plain bool) error {
	if !plain && isatty.IsTerminal(os.Stdout.Fd()) {
		if err := tui.Run(ctx, a.engine); err != nil {
			return runtimeError(fmt.Errorf("tui: %w", err))
		}
		return nil
	}
	if err := a.load(ctx); err != nil {
		return err
	}
	ui.Println(ui.Panel(listLines(a.engine.Store().Items())))
	return nil
}

func (a *app) add(ctx context.Context, name string) error {
	in, err := a.engine.Form().Submit(model.City{Name: name})
	if err != nil {
		return usageErrorf("add: %v", err)
	}
	op, err := a.engine.Submit(in)
	if err != nil {
		return runtimeError(fmt.Errorf("add: %w", err))
	}
	out := a.engine.Do(ctx, op)
	if out.Failed() {
		return runtimeError(out.Err)
	}
	ui.OK(fmt.Sprintf("added %s", out.City))
	return nil
}

func (a *app) edit(ctx context.Context, userIndex int, name string) error {
	if err := a.load(ctx); err != nil {
		return err
	}
	idx, err := a.resolveIndex(userIndex)
	if err != nil {
		return err
	}
	city, _ := a.engine.Store().At(idx)

	fc := a.engine.Form()
	fc.StartEdit(idx, city)
	in, err := fc.Submit(model.City{Name: name})
	if err != nil {
		return usageErrorf("edit: %v", err)
	}
	op, err := a.engine.Submit(in)
	if err != nil {
		return runtimeError(fmt.Errorf("edit: %w", err))
	}
	out := a.engine.Do(ctx, op)
	if out.Failed() {
		return runtimeError(out.Err)
	}
	ui.OK(fmt.Sprintf("saved %s", out.City))
	return nil
}

func (a *app) remove(ctx context.Context, userIndex int) error {
	if err := a.load(ctx); err != nil {
		return err
	}
	idx, err := a.resolveIndex(userIndex)
	if err != nil {
		return err
	}
	op, err := a.engine.Delete(idx)
	if err != nil {
		return runtimeError(fmt.Errorf("rm: %w", err))
	}
	out := a.engine.Do(ctx, op)
	if out.Failed() {
		return runtimeError(out.Err)
	}
	ui.OK(fmt.Sprintf("removed %s", out.City))
	return nil
}

func (a *app) load(ctx context.Context) error {
	out := a.engine.Do(ctx, a.engine.Load())
	if out.Failed() {
		return runtimeError(out.Err)
	}
	return nil
}

// resolveIndex maps a 1-based index from the command line onto the store.
func (a *app) resolveIndex(userIndex int) (int, error) {
	n := a.engine.Store().Len()
	if userIndex < 1 || userIndex > n {
		ui.Hint("Hint: run `cities ls --plain` to see valid indexes")
		return 0, usageErrorf("index out of range: have %d, got %d", n, userIndex)
	}
	return userIndex - 1, nil
}

// -------------- rendering helpers --------------

func listLines(items []model.City) []string {
	t := ui.Current()
	lines := []string{
		fmt.Sprintf("%s   %s %d", t.Title.Render("Cities"), t.Accent.Render("Total"), len(items)),
		"",
	}
	if len(items) == 0 {
		lines = append(lines, t.Muted.Render("no cities"))
	}
	for i, c := range items {
		lines = append(lines, fmt.Sprintf("%s %s %s %s",
			t.Muted.Render(fmt.Sprintf("%2d.", i+1)),
			t.Muted.Render(t.SymBullet),
			ui.Truncate(c.Name, 80),
			t.Muted.Render(fmt.Sprintf("#%d", c.CityID))))
	}
	lines = append(lines, "", t.Muted.Render("Tip: add with `cities add \"New York\"`"))
	return lines
}
