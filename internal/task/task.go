package task

import (
	"context"
	"fmt"

	"github.com/slok/rbrowse/internal/model"
	"github.com/slok/rbrowse/internal/remote"
)

// Execute runs the single blocking remote call of a task variant. The returned
// output is only set for command tasks.
func Execute(ctx context.Context, c remote.Client, t model.Task) (out string, err error) {
	switch t.Kind {
	case model.TaskKindDownload:
		if err := c.GetFile(ctx, t.RemotePath, t.DestDir); err != nil {
			return "", fmt.Errorf("could not download %s: %w", t.RemotePath, err)
		}
		return "", nil

	case model.TaskKindUpload:
		if err := c.SendFile(ctx, t.LocalPath, t.DestDir); err != nil {
			return "", fmt.Errorf("could not upload %s: %w", t.LocalPath, err)
		}
		return "", nil

	case model.TaskKindCommand:
		res, err := c.Command(ctx, t.Command)
		if res != nil {
			out = res.Out
		}
		if err != nil {
			return out, fmt.Errorf("could not run command: %w", err)
		}
		return out, nil
	}

	return "", fmt.Errorf("unknown task kind %q: %w", t.Kind, model.ErrNotValid)
}
