package remote

import (
	"context"
	"fmt"

	"github.com/slok/rbrowse/internal/model"
)

// Client is the remote session client, it issues filesystem and command calls against
// one remote endpoint.
//
// The same client is shared by every running task and by the tree listings, implementations
// must tolerate concurrent independent calls.
type Client interface {
	// ListFiles lists the directories and files of an absolute remote path.
	ListFiles(ctx context.Context, path string) (*model.Listing, error)

	// GetFile fetches a remote file and writes it into localDir using the remote base name.
	GetFile(ctx context.Context, remotePath, localDir string) error

	// SendFile sends a local file into the remote directory remoteDir.
	SendFile(ctx context.Context, localPath, remoteDir string) error

	// Command runs an arbitrary remote command.
	Command(ctx context.Context, command string) (*model.CommandResult, error)
}

// ListVolumes returns the top level volumes of the remote machine using the dialect
// volume enumeration.
func ListVolumes(ctx context.Context, c Client, d Dialect) ([]string, error) {
	cmd := d.VolumesCommand()
	if cmd == "" {
		return d.ParseVolumes(""), nil
	}

	res, err := c.Command(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("could not enumerate volumes: %w", err)
	}

	return d.ParseVolumes(res.Out), nil
}
