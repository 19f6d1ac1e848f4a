package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/slok/rbrowse/internal/log"
	"github.com/slok/rbrowse/internal/model"
	"github.com/slok/rbrowse/internal/remote"
)

const (
	// DefaultConnectTimeout is the default SSH connection timeout.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultSSHPort is the default SSH port.
	DefaultSSHPort = 22
)

// ClientConfig holds the configuration for creating an SSH connection.
type ClientConfig struct {
	// Host is the IP address or hostname of the target.
	Host string
	// Port is the SSH port (default: 22).
	Port int
	// User is the SSH user.
	User string
	// PrivateKey is the PEM-encoded private key bytes.
	PrivateKey []byte
	// Password enables password authentication (optional).
	Password string
	// KnownHostsFile enables host key verification against an OpenSSH known_hosts file.
	// When empty the host key is not verified.
	KnownHostsFile string
	// ConnectTimeout is the SSH connection timeout (default: 10s).
	ConnectTimeout time.Duration
	// Logger for logging (optional).
	Logger log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}
	if len(c.PrivateKey) == 0 && c.Password == "" {
		return fmt.Errorf("private key or password is required")
	}
	if c.Port == 0 {
		c.Port = DefaultSSHPort
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "ssh.Client"})
	return nil
}

// Client is the SSH/SFTP remote session client.
//
// One SSH connection and one SFTP client are shared by all the callers. The SFTP client
// is safe for concurrent use and every command opens its own SSH session, so the client
// tolerates concurrent independent calls.
type Client struct {
	conn   *ssh.Client
	sftp   *sftp.Client
	logger log.Logger
}

var _ remote.Client = &Client{}

// NewClient dials the SSH server and returns a connected client.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid ssh client config: %w", err)
	}

	auth := []ssh.AuthMethod{}
	if len(cfg.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("could not parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHostsFile != "" {
		cb, err := knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("could not load known hosts %s: %w", cfg.KnownHostsFile, err)
		}
		hostKeyCallback = cb
	} else {
		cfg.Logger.Debugf("Host key verification disabled")
	}

	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         cfg.ConnectTimeout,
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))

	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	var d net.Dialer
	netConn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w: %w", addr, model.ErrServer, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, sshCfg)
	if err != nil {
		netConn.Close()
		return nil, fmt.Errorf("ssh handshake failed with %s: %w: %w", addr, model.ErrServer, err)
	}

	conn := ssh.NewClient(sshConn, chans, reqs)

	sftpClient, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not create sftp client: %w: %w", model.ErrServer, err)
	}

	cfg.Logger.Debugf("Connected to %s as %s", addr, cfg.User)

	return &Client{
		conn:   conn,
		sftp:   sftpClient,
		logger: cfg.Logger,
	}, nil
}

// Close closes the SFTP client and the SSH connection.
func (c *Client) Close() error {
	if c.sftp != nil {
		_ = c.sftp.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// ListFiles lists a remote directory splitting it in directories and files.
// Symlinks are resolved, broken ones are listed as files.
func (c *Client) ListFiles(ctx context.Context, dir string) (*model.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir = sftpPath(dir)
	infos, err := c.sftp.ReadDir(dir)
	if err != nil {
		return nil, remoteError(fmt.Sprintf("could not list %s", dir), err)
	}

	listing := &model.Listing{Dirs: []model.Entry{}, Files: []model.Entry{}}
	for _, info := range infos {
		if info.Mode()&fs.ModeSymlink != 0 {
			if target, err := c.sftp.Stat(path.Join(dir, info.Name())); err == nil {
				info = namedFileInfo{FileInfo: target, name: info.Name()}
			}
		}

		modTime := info.ModTime()
		if info.IsDir() {
			listing.Dirs = append(listing.Dirs, model.Entry{Name: info.Name(), ModTime: &modTime})
			continue
		}

		size := info.Size()
		listing.Files = append(listing.Files, model.Entry{Name: info.Name(), ModTime: &modTime, Size: &size})
	}

	return listing, nil
}

// GetFile fetches a remote file (or directory, recursively) into localDir keeping its base name.
func (c *Client) GetFile(ctx context.Context, remotePath, localDir string) error {
	src := sftpPath(remotePath)
	srcInfo, err := c.sftp.Stat(src)
	if err != nil {
		return remoteError(fmt.Sprintf("could not stat remote source %s", remotePath), err)
	}

	if err := os.MkdirAll(localDir, 0755); err != nil {
		return fmt.Errorf("could not create local directory %s: %w: %w", localDir, model.ErrLocalIO, err)
	}
	dst := filepath.Join(localDir, path.Base(src))

	if srcInfo.IsDir() {
		return c.copyDirFrom(ctx, src, dst)
	}
	return c.copyFileFrom(ctx, src, dst, srcInfo.Mode())
}

// SendFile sends a local file (or directory, recursively) into remoteDir keeping its base name.
// An empty remoteDir targets the session working directory.
func (c *Client) SendFile(ctx context.Context, localPath, remoteDir string) error {
	srcInfo, err := os.Stat(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("source path '%s' does not exist: %w: %w", localPath, model.ErrLocalIO, err)
		}
		return fmt.Errorf("could not stat source: %w: %w", model.ErrLocalIO, err)
	}

	dstDir := sftpPath(remoteDir)
	if dstDir != "" {
		info, err := c.sftp.Stat(dstDir)
		if err != nil {
			return remoteError(fmt.Sprintf("could not stat remote destination %s", remoteDir), err)
		}
		if !info.IsDir() {
			return fmt.Errorf("remote destination %s is not a directory: %w", remoteDir, model.ErrPathNotFound)
		}
	}
	dst := path.Join(dstDir, filepath.Base(localPath))

	if srcInfo.IsDir() {
		return c.copyDirTo(ctx, localPath, dst)
	}
	return c.copyFileTo(ctx, localPath, dst, srcInfo.Mode())
}

// Command runs a remote command returning its combined output. A non zero exit code
// is returned as an error together with the result.
func (c *Client) Command(ctx context.Context, command string) (*model.CommandResult, error) {
	out := &combinedOutput{}
	exitCode, err := c.Exec(ctx, command, ExecOpts{Stdout: out, Stderr: out})
	if err != nil {
		return nil, err
	}

	res := &model.CommandResult{Out: out.String(), ExitCode: exitCode}
	if exitCode != 0 {
		return res, fmt.Errorf("command exited with code %d: %w", exitCode, model.ErrServer)
	}

	return res, nil
}

// ExecOpts are options for command execution (non-TTY only).
type ExecOpts struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Exec runs a command on the remote host and returns the exit code.
func (c *Client) Exec(ctx context.Context, command string, opts ExecOpts) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, err
	}

	session, err := c.conn.NewSession()
	if err != nil {
		return -1, fmt.Errorf("could not create ssh session: %w: %w", model.ErrServer, err)
	}
	defer session.Close()

	if opts.Stdin != nil {
		session.Stdin = opts.Stdin
	}
	if opts.Stdout != nil {
		session.Stdout = opts.Stdout
	}
	if opts.Stderr != nil {
		session.Stderr = opts.Stderr
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		return -1, ctx.Err()
	case err := <-done:
		if err != nil {
			var exitErr *ssh.ExitError
			if errors.As(err, &exitErr) {
				return exitErr.ExitStatus(), nil
			}
			return -1, fmt.Errorf("command execution failed: %w: %w", model.ErrServer, err)
		}
		return 0, nil
	}
}

func (c *Client) copyFileTo(ctx context.Context, srcLocal, dstRemote string, mode fs.FileMode) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	src, err := os.Open(srcLocal)
	if err != nil {
		return fmt.Errorf("could not open local file %s: %w: %w", srcLocal, model.ErrLocalIO, err)
	}
	defer src.Close()

	dst, err := c.sftp.Create(dstRemote)
	if err != nil {
		return remoteError(fmt.Sprintf("could not create remote file %s", dstRemote), err)
	}

	copyErr, closeErr := copyClose(dst, src)
	if copyErr != nil {
		return fmt.Errorf("could not copy to remote file %s: %w: %w", dstRemote, model.ErrServer, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("could not close remote file %s: %w: %w", dstRemote, model.ErrServer, closeErr)
	}

	if err := c.sftp.Chmod(dstRemote, mode); err != nil {
		c.logger.Debugf("Could not set permissions on %s: %v", dstRemote, err)
	}

	return nil
}

func (c *Client) copyDirTo(ctx context.Context, srcLocal, dstRemote string) error {
	return filepath.WalkDir(srcLocal, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("could not walk %s: %w: %w", p, model.ErrLocalIO, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		relPath, err := filepath.Rel(srcLocal, p)
		if err != nil {
			return err
		}
		remotePath := path.Join(dstRemote, filepath.ToSlash(relPath))

		// Skip symlinks.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if d.IsDir() {
			if err := c.sftp.MkdirAll(remotePath); err != nil {
				return remoteError(fmt.Sprintf("could not create remote directory %s", remotePath), err)
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("could not stat %s: %w: %w", p, model.ErrLocalIO, err)
		}

		return c.copyFileTo(ctx, p, remotePath, info.Mode())
	})
}

func (c *Client) copyFileFrom(ctx context.Context, srcRemote, dstLocal string, mode fs.FileMode) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	src, err := c.sftp.Open(srcRemote)
	if err != nil {
		return remoteError(fmt.Sprintf("could not open remote file %s", srcRemote), err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dstLocal), 0755); err != nil {
		return fmt.Errorf("could not create local directory: %w: %w", model.ErrLocalIO, err)
	}

	dst, err := os.OpenFile(dstLocal, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm()|0200)
	if err != nil {
		return fmt.Errorf("could not create local file %s: %w: %w", dstLocal, model.ErrLocalIO, err)
	}

	copyErr, closeErr := copyClose(dst, src)
	if copyErr != nil {
		return fmt.Errorf("could not copy from remote file %s: %w: %w", srcRemote, model.ErrLocalIO, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("could not close local file %s: %w: %w", dstLocal, model.ErrLocalIO, closeErr)
	}

	return nil
}

func (c *Client) copyDirFrom(ctx context.Context, srcRemote, dstLocal string) error {
	walker := c.sftp.Walk(srcRemote)
	for walker.Step() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := walker.Err(); err != nil {
			return remoteError(fmt.Sprintf("could not walk %s", walker.Path()), err)
		}

		remotePath := walker.Path()
		relPath, err := filepath.Rel(srcRemote, remotePath)
		if err != nil {
			return err
		}
		localPath := filepath.Join(dstLocal, relPath)

		info := walker.Stat()

		// Skip symlinks.
		if info.Mode()&fs.ModeSymlink != 0 {
			continue
		}

		if info.IsDir() {
			if err := os.MkdirAll(localPath, info.Mode().Perm()|0700); err != nil {
				return fmt.Errorf("could not create local directory %s: %w: %w", localPath, model.ErrLocalIO, err)
			}
			continue
		}

		if err := c.copyFileFrom(ctx, remotePath, localPath, info.Mode()); err != nil {
			return err
		}
	}

	return nil
}

// remoteError classifies a remote filesystem error into the error taxonomy.
// copyClose copies src into dst and always closes dst. A failed close can mean
// buffered data never reached its destination.
func copyClose(dst io.WriteCloser, src io.Reader) (copyErr, closeErr error) {
	_, copyErr = io.Copy(dst, src)
	closeErr = dst.Close()
	return copyErr, closeErr
}

func remoteError(msg string, err error) error {
	if os.IsNotExist(err) || errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w: %w", msg, model.ErrPathNotFound, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, model.ErrServer, err)
}

var windowsDriveRegexp = regexp.MustCompile(`^[A-Za-z]:`)

// sftpPath adapts a browser path to the SFTP namespace, OpenSSH for Windows
// exposes drives as `/C:/...`.
func sftpPath(p string) string {
	if windowsDriveRegexp.MatchString(p) {
		return "/" + p
	}
	return p
}

// combinedOutput is written by the stdout and stderr copy goroutines of a session.
type combinedOutput struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *combinedOutput) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *combinedOutput) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

type namedFileInfo struct {
	fs.FileInfo
	name string
}

func (n namedFileInfo) Name() string { return n.name }
