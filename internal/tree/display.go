package tree

import (
	"strconv"
	"strings"
)

const (
	// DirTypeTag is the type column of directories. It contains the separator so it can't
	// collide with a file extension.
	DirTypeTag = "dir" + Separator
	// TimeLayout is the layout of the modification time column.
	TimeLayout = "02.01.2006 15:04"
)

// Display is the human representation of a node.
type Display struct {
	Name     string
	Modified string
	Size     string
	Type     string
}

// DisplayOf derives the display columns of a node.
func DisplayOf(n Node) Display {
	d := Display{Name: n.Name}

	if n.ModTime != nil {
		d.Modified = n.ModTime.Format(TimeLayout)
	}

	if n.IsDir() {
		d.Type = DirTypeTag
		return d
	}

	d.Type = Extension(n.Name)
	if n.Size != nil {
		d.Size = FormatKB(*n.Size)
	}

	return d
}

// Extension returns the file extension without the dot. Dotfiles and names ending
// in a dot have none.
func Extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return ""
	}
	return name[i+1:]
}

// FormatKB formats a size in bytes as truncated kilobytes grouped by thousands
// with spaces (e.g. `1 234 KB`).
func FormatKB(bytes int64) string {
	kb := bytes / 1024
	if kb < 0 {
		kb = 0
	}

	digits := strconv.FormatInt(kb, 10)
	var sb strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte(' ')
		}
		sb.WriteRune(r)
	}
	sb.WriteString(" KB")

	return sb.String()
}
