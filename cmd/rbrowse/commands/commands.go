package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/rbrowse/internal/conventions"
	"github.com/slok/rbrowse/internal/log"
	"github.com/slok/rbrowse/internal/model"
	"github.com/slok/rbrowse/internal/printer"
	storageio "github.com/slok/rbrowse/internal/storage/io"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// ConnectionFlags are the session settings that can be set from the command line, they
// override the ones of the profile.
type ConnectionFlags struct {
	Host           string
	Port           int
	User           string
	PrivateKeyPath string
	Password       string
	KnownHostsFile string
	Dialect        string
	Workers        int
	ConnectTimeout time.Duration
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug       bool
	NoLog       bool
	NoColor     bool
	NoProgress  bool
	LoggerType  string
	DataDir     string
	ProfilePath string
	Conn        ConnectionFlags

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("no-progress", "Disable the task progress bar.").BoolVar(&c.NoProgress)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	defaultDataDir := filepath.Join(homedir.HomeDir(), conventions.DefaultDataDir)
	app.Flag("data-dir", "Directory for the task journal, staging areas and identity.").Default(defaultDataDir).StringVar(&c.DataDir)
	app.Flag("profile", "Session profile YAML file (default: <data-dir>/profile.yaml if present).").StringVar(&c.ProfilePath)

	// Connection.
	app.Flag("host", "Remote host.").StringVar(&c.Conn.Host)
	app.Flag("port", "Remote SSH port.").IntVar(&c.Conn.Port)
	app.Flag("user", "Remote user.").Short('u').StringVar(&c.Conn.User)
	app.Flag("identity", "SSH private key file (default: rbrowse identity if generated).").Short('i').StringVar(&c.Conn.PrivateKeyPath)
	app.Flag("password", "SSH password.").StringVar(&c.Conn.Password)
	app.Flag("known-hosts", "OpenSSH known_hosts file used to verify the host key.").StringVar(&c.Conn.KnownHostsFile)
	app.Flag("dialect", "Remote command dialect (windows, posix).").EnumVar(&c.Conn.Dialect, "windows", "posix")
	app.Flag("workers", "Number of concurrent transfer workers.").IntVar(&c.Conn.Workers)
	app.Flag("connect-timeout", "SSH connection timeout.").DurationVar(&c.Conn.ConnectTimeout)

	return c
}

// Profile returns the session profile: the profile file (if any) with the connection
// flags on top.
func (c RootCommand) Profile(ctx context.Context) (model.SessionProfile, error) {
	path, required := c.ProfilePath, true
	if path == "" {
		path, required = conventions.ProfilePath(c.DataDir), false
	}

	p, err := loadProfile(ctx, path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !required:
		c.Logger.Debugf("No profile at %q", path)
		p = model.SessionProfile{}
	case errors.Is(err, model.ErrNotValid) && !required:
		// The flags can complete a partial default profile.
		c.Logger.Warningf("Ignoring default profile: %s", err)
		p = model.SessionProfile{}
	case err != nil:
		return model.SessionProfile{}, fmt.Errorf("could not load profile %q: %w", path, err)
	}

	p = mergeProfile(p, c.Conn)
	if p.DownloadDir == "" {
		p.DownloadDir = conventions.DownloadsPath(c.DataDir)
	}

	return p, nil
}

func loadProfile(ctx context.Context, path string) (model.SessionProfile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return model.SessionProfile{}, err
	}

	repo := storageio.NewProfileYAMLRepository(os.DirFS(filepath.Dir(abs)))
	return repo.GetProfile(ctx, filepath.Base(abs))
}

// mergeProfile sets every connection flag that has a value over the profile.
func mergeProfile(p model.SessionProfile, f ConnectionFlags) model.SessionProfile {
	if f.Host != "" {
		p.Host = f.Host
	}
	if f.Port != 0 {
		p.Port = f.Port
	}
	if f.User != "" {
		p.User = f.User
	}
	if f.PrivateKeyPath != "" {
		p.PrivateKeyPath = f.PrivateKeyPath
	}
	if f.KnownHostsFile != "" {
		p.KnownHostsFile = f.KnownHostsFile
	}
	if f.Dialect != "" {
		p.Dialect = strings.ToLower(f.Dialect)
	}
	if f.Workers != 0 {
		p.Workers = f.Workers
	}
	if f.ConnectTimeout != 0 {
		p.ConnectTimeout = f.ConnectTimeout
	}
	return p
}

func newPrinter(format string, w io.Writer) printer.Printer {
	switch format {
	case formatJSON:
		return printer.NewJSONPrinter(w)
	default:
		return printer.NewTablePrinter(w)
	}
}
