package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/rbrowse/internal/explorer"
	"github.com/slok/rbrowse/internal/model"
)

type GetCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	paths []string
	dest  string
}

// NewGetCommand returns the get command.
func NewGetCommand(rootCmd *RootCommand, app *kingpin.Application) *GetCommand {
	c := &GetCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("get", "Download remote files and directories.")
	c.Cmd.Arg("paths", "Remote paths.").Required().StringsVar(&c.paths)
	c.Cmd.Flag("dest", "Local destination directory (default: profile download dir).").Short('d').StringVar(&c.dest)

	return c
}

func (c GetCommand) Name() string { return c.Cmd.FullCommand() }

func (c GetCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	sess, err := newSession(ctx, c.rootCmd, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	dest := c.dest
	if dest == "" {
		dest = sess.profile.DownloadDir
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("could not create destination: %w: %w", model.ErrLocalIO, err)
	}

	return sess.Run(ctx, func(ctx context.Context, svc *explorer.Service) error {
		ids, err := sess.resolve(ctx, svc, c.paths)
		if err != nil {
			return err
		}

		p, err := svc.Download(ctx, ids, dest)
		if err != nil {
			return err
		}
		if err := p.Wait(ctx); err != nil {
			return err
		}

		logger.Infof("Downloaded %d items into %s", len(ids), dest)
		return nil
	})
}

type PutCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	paths []string
	to    string
}

// NewPutCommand returns the put command.
func NewPutCommand(rootCmd *RootCommand, app *kingpin.Application) *PutCommand {
	c := &PutCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("put", "Upload local files and directories into a remote directory.")
	c.Cmd.Arg("paths", "Local paths.").Required().StringsVar(&c.paths)
	c.Cmd.Flag("to", "Remote destination directory.").Short('t').Required().StringVar(&c.to)

	return c
}

func (c PutCommand) Name() string { return c.Cmd.FullCommand() }

func (c PutCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	sess, err := newSession(ctx, c.rootCmd, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	return sess.Run(ctx, func(ctx context.Context, svc *explorer.Service) error {
		dir, err := svc.ExpandPath(ctx, sess.remotePath(c.to))
		if err != nil {
			return fmt.Errorf("could not resolve %q: %w", c.to, err)
		}

		pendings := make([]*explorer.Pending, 0, len(c.paths))
		for _, lp := range c.paths {
			abs, err := filepath.Abs(lp)
			if err != nil {
				return fmt.Errorf("invalid local path %q: %w", lp, err)
			}
			p, err := svc.Upload(ctx, abs, dir)
			if err != nil {
				return err
			}
			pendings = append(pendings, p)
		}

		var errs []error
		for _, p := range pendings {
			if err := p.Wait(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			return err
		}

		logger.Infof("Uploaded %d items into %s", len(c.paths), c.to)
		return nil
	})
}
