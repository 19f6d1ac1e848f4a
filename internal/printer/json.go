package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/rbrowse/internal/model"
	"github.com/slok/rbrowse/internal/staging"
	"github.com/slok/rbrowse/internal/tree"
)

// JSONPrinter prints browser information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// listingOutput represents a directory listing.
type listingOutput struct {
	Path    string      `json:"path"`
	Entries []entryItem `json:"entries"`
}

// entryItem represents a single node of a listing.
type entryItem struct {
	Name       string     `json:"name"`
	Directory  bool       `json:"directory"`
	Type       string     `json:"type"`
	SizeBytes  *int64     `json:"size_bytes,omitempty"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
}

// historyItem represents a task journal record.
type historyItem struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Target     string     `json:"target"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

// commandOutput represents a remote command result.
type commandOutput struct {
	Out      string `json:"out"`
	ExitCode int    `json:"exit_code"`
}

// payloadOutput represents the staged files of a drag.
type payloadOutput struct {
	Paths []string `json:"paths"`
	URIs  []string `json:"uris"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintListing prints a directory listing in JSON format.
func (j *JSONPrinter) PrintListing(path string, nodes []tree.Node) error {
	output := listingOutput{Path: path, Entries: make([]entryItem, len(nodes))}
	for i, n := range nodes {
		item := entryItem{
			Name:      n.Name,
			Directory: n.IsDir(),
			Type:      tree.DisplayOf(n).Type,
			SizeBytes: n.Size,
		}
		if n.ModTime != nil {
			utcTime := n.ModTime.UTC()
			item.ModifiedAt = &utcTime
		}
		output.Entries[i] = item
	}

	return j.encode(output)
}

// PrintVolumes prints the volumes in JSON format.
func (j *JSONPrinter) PrintVolumes(volumes []string) error {
	if volumes == nil {
		volumes = []string{}
	}
	return j.encode(volumes)
}

// PrintHistory prints the task journal in JSON format.
func (j *JSONPrinter) PrintHistory(records []model.TaskRecord) error {
	items := make([]historyItem, len(records))
	for i, r := range records {
		items[i] = historyItem{
			ID:        r.ID,
			Kind:      string(r.Kind),
			Target:    r.Target,
			Status:    string(r.Status),
			Error:     r.Error,
			CreatedAt: r.CreatedAt.UTC(),
		}
		if r.FinishedAt != nil {
			utcTime := r.FinishedAt.UTC()
			items[i].FinishedAt = &utcTime
		}
	}

	return j.encode(items)
}

// PrintCommand prints a command result in JSON format.
func (j *JSONPrinter) PrintCommand(res model.CommandResult) error {
	return j.encode(commandOutput{Out: res.Out, ExitCode: res.ExitCode})
}

// PrintPayload prints the staged files in JSON format.
func (j *JSONPrinter) PrintPayload(payload staging.Payload) error {
	output := payloadOutput{Paths: payload.Paths, URIs: payload.URIs}
	if output.Paths == nil {
		output.Paths = []string{}
	}
	if output.URIs == nil {
		output.URIs = []string{}
	}
	return j.encode(output)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}
