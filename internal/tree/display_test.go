package tree_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slok/rbrowse/internal/tree"
)

func ptr[T any](v T) *T { return &v }

func TestDisplayOf(t *testing.T) {
	modTime := time.Date(2023, 3, 7, 9, 5, 0, 0, time.UTC)

	tests := map[string]struct {
		node       tree.Node
		expDisplay tree.Display
	}{
		"A file should show its time, size and extension.": {
			node: tree.Node{Name: "report.pdf", Kind: tree.KindFile, ModTime: &modTime, Size: ptr[int64](2_500_000)},
			expDisplay: tree.Display{
				Name:     "report.pdf",
				Modified: "07.03.2023 09:05",
				Size:     "2 441 KB",
				Type:     "pdf",
			},
		},

		"A directory should use the directory tag and no size.": {
			node: tree.Node{Name: "docs", Kind: tree.KindDirectory, ModTime: &modTime},
			expDisplay: tree.Display{
				Name:     "docs",
				Modified: "07.03.2023 09:05",
				Type:     tree.DirTypeTag,
			},
		},

		"A directory named like an extension should not collide with files.": {
			node:       tree.Node{Name: "dir", Kind: tree.KindDirectory},
			expDisplay: tree.Display{Name: "dir", Type: "dir/"},
		},

		"Missing metadata should leave the columns empty.": {
			node:       tree.Node{Name: "a.txt", Kind: tree.KindFile},
			expDisplay: tree.Display{Name: "a.txt", Type: "txt"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expDisplay, tree.DisplayOf(test.node))
		})
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]struct {
		name   string
		expExt string
	}{
		"Simple extension.":               {name: "a.txt", expExt: "txt"},
		"Only the last extension counts.": {name: "a.tar.gz", expExt: "gz"},
		"No extension.":                   {name: "Makefile", expExt: ""},
		"Dotfiles have no extension.":     {name: ".bashrc", expExt: ""},
		"Trailing dot has no extension.":  {name: "name.", expExt: ""},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expExt, tree.Extension(test.name))
		})
	}
}

func TestFormatKB(t *testing.T) {
	tests := map[string]struct {
		bytes int64
		exp   string
	}{
		"Zero bytes.":               {bytes: 0, exp: "0 KB"},
		"Less than a KB truncates.": {bytes: 1023, exp: "0 KB"},
		"Exact KB.":                 {bytes: 1024, exp: "1 KB"},
		"Three digits.":             {bytes: 999 * 1024, exp: "999 KB"},
		"Thousands grouping.":       {bytes: 1234 * 1024, exp: "1 234 KB"},
		"Millions grouping.":        {bytes: 1234567 * 1024, exp: "1 234 567 KB"},
		"Negative sizes clamp.":     {bytes: -5000, exp: "0 KB"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, tree.FormatKB(test.bytes))
		})
	}
}
