// Package staging bridges the tree cache and the host drag and drop payloads.
//
// A drag gesture fetches the selected remote files into its own staging directory and
// exposes the local copies as the payload. The directory is removed once the gesture ends.
package staging

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/rbrowse/internal/log"
	"github.com/slok/rbrowse/internal/model"
	"github.com/slok/rbrowse/internal/remote"
	"github.com/slok/rbrowse/internal/tree"
)

// StagerConfig is the stager configuration.
type StagerConfig struct {
	Client remote.Client
	// Root is the local directory where every gesture creates its staging directory.
	Root string
	// StaleAfter is the age after which Purge considers a staging directory abandoned.
	StaleAfter time.Duration
	Logger     log.Logger
}

// DefaultStaleAfter is the default StagerConfig.StaleAfter.
const DefaultStaleAfter = 24 * time.Hour

func (c *StagerConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("client is required")
	}
	if c.Root == "" {
		return fmt.Errorf("staging root is required")
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultStaleAfter
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "staging.Stager"})
	return nil
}

// Stager creates staging areas for drag gestures.
type Stager struct {
	client     remote.Client
	root       string
	staleAfter time.Duration
	logger     log.Logger
}

// NewStager returns a new stager.
func NewStager(cfg StagerConfig) (*Stager, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Stager{
		client:     cfg.Client,
		root:       cfg.Root,
		staleAfter: cfg.StaleAfter,
		logger:     cfg.Logger,
	}, nil
}

// Payload is what a drag gesture hands to the host.
type Payload struct {
	// Paths are the local paths of the staged items, in selection order.
	Paths []string
	// URIs are the same paths as `file://` URIs.
	URIs []string
}

// Gesture is a drag in progress, it owns its staging directory.
type Gesture struct {
	dir     string
	payload Payload
	logger  log.Logger

	once sync.Once
	err  error
}

// Dir returns the staging directory of the gesture.
func (g *Gesture) Dir() string { return g.dir }

// Payload returns the staged items.
func (g *Gesture) Payload() Payload { return g.payload }

// End removes the staging directory and everything in it. It can be called any number
// of times.
func (g *Gesture) End() error {
	g.once.Do(func() {
		if err := os.RemoveAll(g.dir); err != nil {
			g.err = fmt.Errorf("could not remove staging directory %q: %w: %w", g.dir, model.ErrLocalIO, err)
			return
		}
		g.logger.Debugf("Staging directory removed")
	})
	return g.err
}

// Start begins a drag gesture fetching every remote path into a new staging directory.
//
// Items are fetched one after another. A failed item is logged and left out of the
// payload, the rest continue. Items sharing a base name (e.g. `/a/x.txt` and `/b/x.txt`)
// are fetched into their own numbered subdirectory so none overwrites another. The
// caller must always End the returned gesture.
func (s *Stager) Start(ctx context.Context, remotePaths []string) (*Gesture, error) {
	dir := filepath.Join(s.root, ulid.Make().String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create staging directory: %w: %w", model.ErrLocalIO, err)
	}

	logger := s.logger.WithValues(log.Kv{"staging-dir": dir})
	g := &Gesture{
		dir:     dir,
		payload: Payload{Paths: []string{}, URIs: []string{}},
		logger:  logger,
	}

	// Names taken at the top of the staging directory.
	taken := map[string]bool{}
	for i, rp := range remotePaths {
		name := path.Base(rp)
		target := dir
		if taken[name] {
			sub := strconv.Itoa(i)
			for taken[sub] {
				sub += "_"
			}
			taken[sub] = true
			target = filepath.Join(dir, sub)
			if err := os.MkdirAll(target, 0o755); err != nil {
				logger.Errorf("Could not stage %q: %s: %s", rp, model.ErrLocalIO, err)
				continue
			}
		}

		if err := s.client.GetFile(ctx, rp, target); err != nil {
			logger.Errorf("Could not stage %q: %s", rp, err)
			continue
		}
		if target == dir {
			taken[name] = true
		}

		local := filepath.Join(target, name)
		g.payload.Paths = append(g.payload.Paths, local)
		g.payload.URIs = append(g.payload.URIs, FileURI(local))
		logger.Debugf("Staged %q", rp)
	}

	logger.Infof("Staged %d of %d items", len(g.payload.Paths), len(remotePaths))

	return g, nil
}

// Purge removes the leftovers of gestures that never ended (e.g. a killed process).
//
// The staging root is shared by every running process, so only directories whose ULID
// time and modification time are both older than StaleAfter are removed.
func (s *Stager) Purge() error {
	now := time.Now()
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not read staging root: %w: %w", model.ErrLocalIO, err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, err := ulid.ParseStrict(e.Name())
		if err != nil {
			continue
		}
		if now.Sub(ulid.Time(id.Time())) < s.staleAfter {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed by its owner meanwhile.
			continue
		}
		if now.Sub(info.ModTime()) < s.staleAfter {
			continue
		}

		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
			return fmt.Errorf("could not remove stale staging directory: %w: %w", model.ErrLocalIO, err)
		}
		s.logger.Debugf("Stale staging directory %q removed", e.Name())
	}

	return nil
}

// FileURI returns the `file://` URI of a local path.
func FileURI(localPath string) string {
	p := filepath.ToSlash(localPath)
	if !path.IsAbs(p) {
		// Windows drive paths.
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}

// DropDestination resolves the directory that receives a drop: the target itself when it
// is a directory, its parent when it is a file, or the root when there is no target.
func DropDestination(t *tree.Tree, target *tree.NodeID) (tree.NodeID, error) {
	if target == nil {
		return tree.RootID, nil
	}

	n, err := t.Node(*target)
	if err != nil {
		return 0, fmt.Errorf("could not get drop target: %w", err)
	}
	if n.IsDir() {
		return n.ID, nil
	}

	return n.Parent, nil
}
