package printer_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/rbrowse/internal/model"
	"github.com/slok/rbrowse/internal/printer"
	"github.com/slok/rbrowse/internal/staging"
	"github.com/slok/rbrowse/internal/tree"
)

func nodesFixture() []tree.Node {
	modTime := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)
	size := int64(1234 * 1024)
	return []tree.Node{
		{ID: 2, Name: "docs", Kind: tree.KindDirectory, ModTime: &modTime},
		{ID: 3, Name: "report.pdf", Kind: tree.KindFile, ModTime: &modTime, Size: &size},
	}
}

func historyFixture() []model.TaskRecord {
	createdAt := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)
	finishedAt := createdAt.Add(time.Second)
	return []model.TaskRecord{
		{
			ID:         "01HQZX3Y4Z5A6B7C8D9E0F1G2H",
			TaskID:     1,
			Kind:       model.TaskKindUpload,
			Target:     "/tmp/a.txt -> C:/dir",
			Status:     model.TaskStateFailed,
			Error:      "could not upload:\naccess denied",
			CreatedAt:  createdAt,
			FinishedAt: &finishedAt,
		},
	}
}

func TestTablePrinterPrintListing(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintListing("C:/", nodesFixture())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"NAME", "MODIFIED", "SIZE", "TYPE"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"docs", "30.01.2026", "10:00", "dir/"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"report.pdf", "30.01.2026", "10:00", "1", "234", "KB", "pdf"}, strings.Fields(lines[2]))
}

func TestTablePrinterPrintListingEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	require.NoError(t, p.PrintListing("C:/", nil))
	assert.Empty(t, buf.String())
}

func TestJSONPrinterPrintListing(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintListing("C:/", nodesFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"path": "C:/"`)
	assert.Contains(t, out, `"type": "dir/"`)
	assert.Contains(t, out, `"size_bytes": 1263616`)
	assert.Contains(t, out, `"modified_at": "2026-01-30T10:00:00Z"`)
}

func TestTablePrinterPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintHistory(historyFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "01HQZX3Y4Z5A6B7C8D9E0F1G2H")
	assert.Contains(t, out, "failed")
	// Multiline errors stay on their row.
	assert.Contains(t, out, "could not upload: access denied")
}

func TestJSONPrinterPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintHistory(historyFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"kind": "upload"`)
	assert.Contains(t, out, `"status": "failed"`)
	assert.Contains(t, out, `"finished_at": "2026-01-30T10:00:01Z"`)
}

func TestPrintCommand(t *testing.T) {
	tests := map[string]struct {
		printer func(b *bytes.Buffer) printer.Printer
		res     model.CommandResult
		expOut  string
	}{
		"Table should print the raw output with a final new line.": {
			printer: func(b *bytes.Buffer) printer.Printer { return printer.NewTablePrinter(b) },
			res:     model.CommandResult{Out: "hello"},
			expOut:  "hello\n",
		},

		"Table should not add an extra new line.": {
			printer: func(b *bytes.Buffer) printer.Printer { return printer.NewTablePrinter(b) },
			res:     model.CommandResult{Out: "hello\n"},
			expOut:  "hello\n",
		},

		"JSON should print the output and the exit code.": {
			printer: func(b *bytes.Buffer) printer.Printer { return printer.NewJSONPrinter(b) },
			res:     model.CommandResult{Out: "boom", ExitCode: 2},
			expOut:  "{\n  \"out\": \"boom\",\n  \"exit_code\": 2\n}\n",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			err := test.printer(&buf).PrintCommand(test.res)
			require.NoError(t, err)
			assert.Equal(t, test.expOut, buf.String())
		})
	}
}

func TestTablePrinterPrintPayload(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(f, make([]byte, 2048), 0o644))

	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)
	err := p.PrintPayload(staging.Payload{Paths: []string{f}, URIs: []string{staging.FileURI(f)}})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), f)
	assert.Contains(t, buf.String(), "2.0 KB")
}

func TestJSONPrinterPrintVolumes(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	require.NoError(t, p.PrintVolumes(nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestTablePrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintMessage("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", strings.TrimSpace(buf.String()))
}
