package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/rbrowse/internal/explorer"
	"github.com/slok/rbrowse/internal/tree"
)

type DragCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	paths  []string
	hold   bool
	format string
}

// NewDragCommand returns the drag command.
func NewDragCommand(rootCmd *RootCommand, app *kingpin.Application) *DragCommand {
	c := &DragCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("drag", "Stage remote files locally and print the drag payload.")
	c.Cmd.Arg("paths", "Remote paths.").Required().StringsVar(&c.paths)
	c.Cmd.Flag("hold", "Keep the staged files until interrupted.").Default("true").BoolVar(&c.hold)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c DragCommand) Name() string { return c.Cmd.FullCommand() }

func (c DragCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	sess, err := newSession(ctx, c.rootCmd, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	return sess.Run(ctx, func(ctx context.Context, svc *explorer.Service) error {
		ids, err := sess.resolve(ctx, svc, c.paths)
		if err != nil {
			return err
		}

		g, err := svc.DragStart(ctx, ids)
		if err != nil {
			return err
		}
		defer func() {
			if err := g.End(); err != nil {
				logger.Warningf("Could not end drag: %s", err)
			}
		}()

		if err := newPrinter(c.format, c.rootCmd.Stdout).PrintPayload(g.Payload()); err != nil {
			return fmt.Errorf("could not print payload: %w", err)
		}

		if c.hold {
			logger.Infof("Drag in progress, interrupt to end it")
			<-ctx.Done()
		}

		return nil
	})
}

type DropCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	paths  []string
	target string
}

// NewDropCommand returns the drop command.
func NewDropCommand(rootCmd *RootCommand, app *kingpin.Application) *DropCommand {
	c := &DropCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("drop", "Drop local files on a remote node.")
	c.Cmd.Arg("paths", "Local paths.").Required().StringsVar(&c.paths)
	c.Cmd.Flag("target", "Remote node the files are dropped on, a file drops on its directory (default: remote home).").StringVar(&c.target)

	return c
}

func (c DropCommand) Name() string { return c.Cmd.FullCommand() }

func (c DropCommand) Run(ctx context.Context) error {
	sess, err := newSession(ctx, c.rootCmd, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	return sess.Run(ctx, func(ctx context.Context, svc *explorer.Service) error {
		var target *tree.NodeID
		if c.target != "" {
			ids, err := sess.resolve(ctx, svc, []string{c.target})
			if err != nil {
				return err
			}
			target = &ids[0]
		}

		local := make([]string, 0, len(c.paths))
		for _, lp := range c.paths {
			abs, err := filepath.Abs(lp)
			if err != nil {
				return fmt.Errorf("invalid local path %q: %w", lp, err)
			}
			local = append(local, abs)
		}

		p, err := svc.Drop(ctx, local, target)
		if err != nil {
			return err
		}
		if err := p.Wait(ctx); err != nil {
			return err
		}

		c.rootCmd.Logger.Infof("Dropped %d items", len(local))
		return nil
	})
}
