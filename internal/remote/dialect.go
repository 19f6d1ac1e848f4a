package remote

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/slok/rbrowse/internal/model"
)

const (
	// DialectWindows targets remote machines whose commands run on cmd.exe.
	DialectWindows = "windows"
	// DialectPOSIX targets remote machines whose commands run on a POSIX shell.
	DialectPOSIX = "posix"
)

// Dialect knows how to express the filesystem mutations and the volume enumeration
// as remote commands for a specific remote platform.
type Dialect interface {
	Name() string
	// VolumesCommand returns the command that enumerates volumes, empty if the volumes are static.
	VolumesCommand() string
	// ParseVolumes converts the volume command output into root entry names.
	ParseVolumes(out string) []string
	// ValidName checks a user provided entry name can be used on the remote platform and
	// in the commands of the dialect. Invalid names return ErrNotValid.
	ValidName(name string) error
	// RenameCommand renames the entry at oldPath to newName in the same directory, newName
	// must be a valid name.
	RenameCommand(oldPath, newName string) string
	// RemoveDirCommand removes a directory recursively.
	RemoveDirCommand(path string) string
	// RemoveFileCommand removes a single file.
	RemoveFileCommand(path string) string
}

// NewDialect returns the dialect for a name.
func NewDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case DialectWindows:
		return WindowsDialect{}, nil
	case DialectPOSIX, "":
		return POSIXDialect{}, nil
	}

	return nil, fmt.Errorf("unknown dialect %q: %w", name, model.ErrNotValid)
}

var windowsVolumeRegexp = regexp.MustCompile(`^[A-Za-z]:$`)

// WindowsDialect uses cmd.exe builtins.
type WindowsDialect struct{}

func (WindowsDialect) Name() string           { return DialectWindows }
func (WindowsDialect) VolumesCommand() string { return "wmic logicaldisk get name" }

// ParseVolumes parses `wmic logicaldisk get name` output, a "Name" header followed by
// one drive per line (e.g. `C:`), into `C:/` style names.
func (WindowsDialect) ParseVolumes(out string) []string {
	volumes := []string{}
	for _, line := range strings.FieldsFunc(out, func(r rune) bool { return r == '\n' || r == '\r' }) {
		line = strings.TrimSpace(line)
		if !windowsVolumeRegexp.MatchString(line) {
			continue
		}
		volumes = append(volumes, strings.ToUpper(line)+"/")
	}

	return volumes
}

var windowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// ValidName rejects what Windows doesn't allow in names plus `%`, that cmd.exe expands
// even inside quotes.
func (WindowsDialect) ValidName(name string) error {
	if err := validBaseName(name); err != nil {
		return err
	}
	if i := strings.IndexFunc(name, func(r rune) bool { return r < 0x20 || strings.ContainsRune(`\/:*?"<>|%`, r) }); i >= 0 {
		return fmt.Errorf("name %q has a forbidden character %q: %w", name, name[i], model.ErrNotValid)
	}
	if strings.HasSuffix(name, " ") || strings.HasSuffix(name, ".") {
		return fmt.Errorf("name %q can't end with a space or a dot: %w", name, model.ErrNotValid)
	}
	base, _, _ := strings.Cut(name, ".")
	if windowsReservedNames[strings.ToUpper(base)] {
		return fmt.Errorf("name %q is reserved: %w", name, model.ErrNotValid)
	}

	return nil
}

func (WindowsDialect) RenameCommand(oldPath, newName string) string {
	return fmt.Sprintf("ren %s %s", windowsQuote(windowsPath(oldPath)), windowsQuote(newName))
}

func (WindowsDialect) RemoveDirCommand(p string) string {
	return fmt.Sprintf("rmdir /s /q %s", windowsQuote(windowsPath(p)))
}

func (WindowsDialect) RemoveFileCommand(p string) string {
	return fmt.Sprintf("del /f /q %s", windowsQuote(windowsPath(p)))
}

func windowsPath(p string) string { return strings.ReplaceAll(p, "/", `\`) }

// windowsQuote expects s without double quotes, paths come from listings and new names
// are checked with ValidName.
func windowsQuote(s string) string { return `"` + s + `"` }

// POSIXDialect uses coreutils on a POSIX shell, the only volume is `/`.
type POSIXDialect struct{}

func (POSIXDialect) Name() string                 { return DialectPOSIX }
func (POSIXDialect) VolumesCommand() string       { return "" }
func (POSIXDialect) ParseVolumes(string) []string { return []string{"/"} }

// ValidName only rejects what can't be a single path segment, the quoting handles the rest.
func (POSIXDialect) ValidName(name string) error {
	if err := validBaseName(name); err != nil {
		return err
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("name %q has a NUL character: %w", name, model.ErrNotValid)
	}
	return nil
}

func (POSIXDialect) RenameCommand(oldPath, newName string) string {
	newPath := path.Join(path.Dir(oldPath), newName)
	return fmt.Sprintf("mv -- %s %s", posixQuote(oldPath), posixQuote(newPath))
}

func (POSIXDialect) RemoveDirCommand(p string) string {
	return fmt.Sprintf("rm -rf -- %s", posixQuote(p))
}

func (POSIXDialect) RemoveFileCommand(p string) string {
	return fmt.Sprintf("rm -f -- %s", posixQuote(p))
}

func posixQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// validBaseName holds the rules shared by every dialect: a single path segment.
func validBaseName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("name %q is not valid: %w", name, model.ErrNotValid)
	case strings.Contains(name, "/"):
		return fmt.Errorf("name %q can't contain separators: %w", name, model.ErrNotValid)
	}
	return nil
}
