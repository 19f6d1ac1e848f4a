package printer

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/slok/rbrowse/internal/model"
	"github.com/slok/rbrowse/internal/staging"
	"github.com/slok/rbrowse/internal/tree"
)

// TablePrinter prints browser information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintListing prints the children of a directory with their display columns.
func (t *TablePrinter) PrintListing(path string, nodes []tree.Node) error {
	if len(nodes) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header.
	fmt.Fprintln(tw, "NAME\tMODIFIED\tSIZE\tTYPE")

	// Print rows.
	for _, n := range nodes {
		d := tree.DisplayOf(n)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, d.Modified, d.Size, d.Type)
	}

	return nil
}

// PrintVolumes prints one volume per line.
func (t *TablePrinter) PrintVolumes(volumes []string) error {
	for _, v := range volumes {
		fmt.Fprintln(t.writer, v)
	}
	return nil
}

// PrintHistory prints the task journal in a table format.
func (t *TablePrinter) PrintHistory(records []model.TaskRecord) error {
	if len(records) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header.
	fmt.Fprintln(tw, "ID\tKIND\tTARGET\tSTATUS\tCREATED\tERROR")

	// Print rows.
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Kind,
			r.Target,
			r.Status,
			Since(r.CreatedAt, time.Now()),
			oneLine(r.Error),
		)
	}

	return nil
}

// PrintCommand prints the raw command output.
func (t *TablePrinter) PrintCommand(res model.CommandResult) error {
	fmt.Fprint(t.writer, res.Out)
	if res.Out != "" && !strings.HasSuffix(res.Out, "\n") {
		fmt.Fprintln(t.writer)
	}
	return nil
}

// PrintPayload prints the staged local files.
func (t *TablePrinter) PrintPayload(payload staging.Payload) error {
	if len(payload.Paths) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "PATH\tSIZE")
	for _, p := range payload.Paths {
		size := "-"
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			size = FormatBytes(info.Size())
		}
		fmt.Fprintf(tw, "%s\t%s\n", p, size)
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
