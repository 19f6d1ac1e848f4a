package printer

import (
	"github.com/slok/rbrowse/internal/model"
	"github.com/slok/rbrowse/internal/staging"
	"github.com/slok/rbrowse/internal/tree"
)

// Printer knows how to print browser information in different formats.
type Printer interface {
	PrintListing(path string, nodes []tree.Node) error
	PrintVolumes(volumes []string) error
	PrintHistory(records []model.TaskRecord) error
	PrintCommand(res model.CommandResult) error
	PrintPayload(payload staging.Payload) error
	PrintMessage(msg string) error
}
