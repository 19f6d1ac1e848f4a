package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/rbrowse/internal/explorer"
	"github.com/slok/rbrowse/internal/model"
	"github.com/slok/rbrowse/internal/tree"
)

type LsCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	path   string
	format string
}

// NewLsCommand returns the ls command.
func NewLsCommand(rootCmd *RootCommand, app *kingpin.Application) *LsCommand {
	c := &LsCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("ls", "List a remote directory.")
	c.Cmd.Arg("path", "Remote directory (e.g. C:/Users or /home), the volumes when empty.").StringVar(&c.path)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c LsCommand) Name() string { return c.Cmd.FullCommand() }

func (c LsCommand) Run(ctx context.Context) error {
	sess, err := newSession(ctx, c.rootCmd, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	return sess.Run(ctx, func(ctx context.Context, svc *explorer.Service) error {
		id, err := svc.ExpandPath(ctx, sess.remotePath(c.path))
		if err != nil {
			return fmt.Errorf("could not resolve %q: %w", c.path, err)
		}
		if err := svc.Expand(ctx, id); err != nil {
			return err
		}

		snap, err := svc.Snapshot(ctx, id)
		if err != nil {
			return err
		}

		p := newPrinter(c.format, c.rootCmd.Stdout)
		if id == tree.RootID {
			return p.PrintVolumes(nodeNames(snap.Children))
		}
		return p.PrintListing(snap.Path, snap.Children)
	})
}

type VolumesCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewVolumesCommand returns the volumes command.
func NewVolumesCommand(rootCmd *RootCommand, app *kingpin.Application) *VolumesCommand {
	c := &VolumesCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("volumes", "List the remote volumes.")
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c VolumesCommand) Name() string { return c.Cmd.FullCommand() }

func (c VolumesCommand) Run(ctx context.Context) error {
	sess, err := newSession(ctx, c.rootCmd, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	return sess.Run(ctx, func(ctx context.Context, svc *explorer.Service) error {
		if err := svc.Expand(ctx, tree.RootID); err != nil {
			return err
		}
		snap, err := svc.Snapshot(ctx, tree.RootID)
		if err != nil {
			return err
		}
		if len(snap.Children) == 0 {
			return fmt.Errorf("remote machine reported no volumes: %w", model.ErrNotFound)
		}

		return newPrinter(c.format, c.rootCmd.Stdout).PrintVolumes(nodeNames(snap.Children))
	})
}

func nodeNames(nodes []tree.Node) []string {
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		names = append(names, n.Name)
	}
	return names
}
