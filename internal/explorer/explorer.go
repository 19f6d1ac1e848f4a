// Package explorer is the entry point of the UI layer to the file browser core.
//
// Every entry point can be called from any goroutine except the interactive loop itself.
// Tree and scheduler accesses are marshaled onto the loop, remote listings run on the
// caller goroutine and task work runs on the scheduler workers.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/slok/rbrowse/internal/log"
	"github.com/slok/rbrowse/internal/model"
	"github.com/slok/rbrowse/internal/remote"
	"github.com/slok/rbrowse/internal/staging"
	"github.com/slok/rbrowse/internal/task"
	"github.com/slok/rbrowse/internal/tree"
)

// Loop is the interactive context.
type Loop interface {
	Do(ctx context.Context, fn func()) error
}

// Scheduler runs tasks, it must only be used from the interactive context.
type Scheduler interface {
	Submit(t model.Task, onDone task.DoneFunc) (model.TaskID, error)
	Progress() model.Progress
}

// Stager starts drag gestures.
type Stager interface {
	Start(ctx context.Context, remotePaths []string) (*staging.Gesture, error)
}

// Confirmer asks the user to confirm a destructive action on the named entries.
type Confirmer interface {
	Confirm(ctx context.Context, names []string) (bool, error)
}

// ConfirmFunc is a helper to use functions as Confirmer.
type ConfirmFunc func(ctx context.Context, names []string) (bool, error)

func (c ConfirmFunc) Confirm(ctx context.Context, names []string) (bool, error) {
	return c(ctx, names)
}

// ServiceConfig is the service configuration.
type ServiceConfig struct {
	Client    remote.Client
	Dialect   remote.Dialect
	Loop      Loop
	Scheduler Scheduler
	Stager    Stager
	Confirmer Confirmer
	Logger    log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("client is required")
	}
	if c.Loop == nil {
		return fmt.Errorf("loop is required")
	}
	if c.Scheduler == nil {
		return fmt.Errorf("scheduler is required")
	}
	if c.Dialect == nil {
		c.Dialect = remote.POSIXDialect{}
	}
	if c.Confirmer == nil {
		// Nothing is deleted without an explicit confirmation.
		c.Confirmer = ConfirmFunc(func(context.Context, []string) (bool, error) { return false, nil })
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "explorer.Service"})
	return nil
}

// Service is the file browser core.
type Service struct {
	client    remote.Client
	dialect   remote.Dialect
	loop      Loop
	scheduler Scheduler
	stager    Stager
	confirmer Confirmer
	logger    log.Logger

	// tree is only accessed from the loop.
	tree *tree.Tree
}

// NewService returns a new service with an empty tree.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		client:    cfg.Client,
		dialect:   cfg.Dialect,
		loop:      cfg.Loop,
		scheduler: cfg.Scheduler,
		stager:    cfg.Stager,
		confirmer: cfg.Confirmer,
		logger:    cfg.Logger,
		tree:      tree.New(),
	}, nil
}

// Pending is an operation whose tasks are still running.
type Pending struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) finish(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

// Done is closed once the operation finished.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the operation finishes or the context is cancelled.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// onLoop runs fn on the loop and returns its error.
func (s *Service) onLoop(ctx context.Context, fn func() error) error {
	var err error
	if doErr := s.loop.Do(ctx, func() { err = fn() }); doErr != nil {
		return doErr
	}
	return err
}

// Snapshot is a read only copy of a node and its children.
type Snapshot struct {
	Node     tree.Node
	Path     string
	Children []tree.Node
}

// Snapshot returns a copy of a node and its cached children.
func (s *Service) Snapshot(ctx context.Context, id tree.NodeID) (*Snapshot, error) {
	var snap Snapshot
	err := s.onLoop(ctx, func() error {
		n, err := s.tree.Node(id)
		if err != nil {
			return err
		}
		p, err := s.tree.Path(id)
		if err != nil {
			return err
		}

		snap = Snapshot{Node: n, Path: p, Children: make([]tree.Node, 0, len(n.Children))}
		for _, cid := range n.Children {
			c, err := s.tree.Node(cid)
			if err != nil {
				return err
			}
			snap.Children = append(snap.Children, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &snap, nil
}

// Progress returns the current aggregated task progress.
func (s *Service) Progress(ctx context.Context) (model.Progress, error) {
	var p model.Progress
	err := s.loop.Do(ctx, func() { p = s.scheduler.Progress() })
	return p, err
}

// Expand lists a directory if it has not been loaded yet.
func (s *Service) Expand(ctx context.Context, id tree.NodeID) error {
	return s.list(ctx, id, false)
}

// Reload lists a directory again even if it is already loaded.
func (s *Service) Reload(ctx context.Context, id tree.NodeID) error {
	return s.list(ctx, id, true)
}

func (s *Service) list(ctx context.Context, id tree.NodeID, force bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		p    string
		skip bool
	)
	err := s.onLoop(ctx, func() error {
		n, err := s.tree.Node(id)
		if err != nil {
			return err
		}
		if !n.IsDir() {
			return fmt.Errorf("node %d is not a directory: %w", id, model.ErrNotValid)
		}
		if n.Loaded && !force {
			skip = true
			return nil
		}
		p, err = s.tree.Path(id)
		return err
	})
	if err != nil {
		return err
	}
	if skip {
		return nil
	}

	if id == tree.RootID {
		vols, err := remote.ListVolumes(ctx, s.client, s.dialect)
		if err != nil {
			return fmt.Errorf("could not list volumes: %w", err)
		}
		s.logger.Debugf("Listed %d volumes", len(vols))
		return s.loop.Do(ctx, func() { s.tree.SetVolumes(vols) })
	}

	listing, err := s.client.ListFiles(ctx, p)
	if err != nil {
		return fmt.Errorf("could not list %q: %w", p, err)
	}
	s.logger.Debugf("Listed %q: %d directories, %d files", p, len(listing.Dirs), len(listing.Files))

	// The node could have been removed while listing.
	return s.onLoop(ctx, func() error { return s.tree.SetListing(id, *listing) })
}

// refresh runs on the loop. It marks a loaded directory as stale and lists it again in
// the background, done gets the listing result. If ctx ends first the directory stays
// stale and the next Expand lists it.
func (s *Service) refresh(ctx context.Context, id tree.NodeID, done func(error)) {
	if err := s.tree.Invalidate(id); err != nil {
		done(err)
		return
	}
	go func() { done(s.Expand(ctx, id)) }()
}

// ExpandPath expands every directory on the way to a remote path and returns the id of
// the node at that path.
func (s *Service) ExpandPath(ctx context.Context, p string) (tree.NodeID, error) {
	current := tree.RootID
	for _, prefix := range pathPrefixes(p) {
		if err := s.Expand(ctx, current); err != nil {
			return 0, err
		}

		var next tree.NodeID
		err := s.onLoop(ctx, func() error {
			var err error
			next, err = s.tree.Lookup(prefix)
			return err
		})
		if err != nil {
			return 0, err
		}
		current = next
	}

	return current, nil
}

// pathPrefixes returns the paths of every ancestor of p plus p itself, volume first.
// `C:/dir/a` yields `C:/`, `C:/dir`, `C:/dir/a`.
func pathPrefixes(p string) []string {
	if p == "" {
		return nil
	}

	var volume, rest string
	if strings.HasPrefix(p, tree.Separator) {
		volume, rest = tree.Separator, p[1:]
	} else {
		v, r, _ := strings.Cut(p, tree.Separator)
		volume, rest = v+tree.Separator, r
	}

	prefixes := []string{volume}
	current := volume
	for _, seg := range strings.Split(rest, tree.Separator) {
		if seg == "" {
			continue
		}
		current = tree.JoinPath(current, seg)
		prefixes = append(prefixes, current)
	}

	return prefixes
}

// Actions are the operations available for a selection.
type Actions struct {
	Download bool
	Upload   bool
	Rename   bool
	Delete   bool
}

// ActionsFor returns the available operations for a number of selected nodes.
func ActionsFor(selected int) Actions {
	return Actions{
		Download: selected >= 1,
		Upload:   selected <= 1,
		Rename:   selected == 1,
		Delete:   selected >= 1,
	}
}

// nodeRef is the information of a selected node resolved on the loop.
type nodeRef struct {
	id     tree.NodeID
	parent tree.NodeID
	name   string
	path   string
	dir    bool
}

// resolve gets the selected nodes, must run on the loop. The root and the volumes are not
// selectable entries.
func (s *Service) resolve(ids []tree.NodeID) ([]nodeRef, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("empty selection: %w", model.ErrNotValid)
	}

	refs := make([]nodeRef, 0, len(ids))
	for _, id := range ids {
		n, err := s.tree.Node(id)
		if err != nil {
			return nil, err
		}
		if n.ID == tree.RootID || n.Parent == tree.RootID {
			return nil, fmt.Errorf("node %q can't be selected: %w", n.Name, model.ErrNotValid)
		}
		p, err := s.tree.Path(id)
		if err != nil {
			return nil, err
		}
		refs = append(refs, nodeRef{id: id, parent: n.Parent, name: n.Name, path: p, dir: n.IsDir()})
	}

	return refs, nil
}

// submitBatch submits independent tasks, onAll runs on the loop once all of them finished.
// Must run on the loop.
func (s *Service) submitBatch(tasks []model.Task, onAll func(done []model.Task)) error {
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	if len(tasks) == 0 {
		onAll(nil)
		return nil
	}

	remaining := len(tasks)
	done := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		_, err := s.scheduler.Submit(t, func(t model.Task) {
			done = append(done, t)
			remaining--
			if remaining == 0 {
				onAll(done)
			}
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// tasksErr joins the errors of the failed tasks.
func tasksErr(tasks []model.Task) error {
	var errs []error
	for _, t := range tasks {
		if t.Err != nil {
			errs = append(errs, t.Err)
		}
	}
	return errors.Join(errs...)
}

// Download fetches the selected nodes into a local directory.
func (s *Service) Download(ctx context.Context, ids []tree.NodeID, localDir string) (*Pending, error) {
	p := newPending()
	err := s.onLoop(ctx, func() error {
		refs, err := s.resolve(ids)
		if err != nil {
			return err
		}

		tasks := make([]model.Task, 0, len(refs))
		for _, r := range refs {
			tasks = append(tasks, model.NewDownloadTask(r.path, localDir))
		}
		return s.submitBatch(tasks, func(done []model.Task) { p.finish(tasksErr(done)) })
	})
	if err != nil {
		return nil, fmt.Errorf("could not download: %w", err)
	}

	return p, nil
}

// Upload sends a local file into a directory node.
func (s *Service) Upload(ctx context.Context, localPath string, dirID tree.NodeID) (*Pending, error) {
	p := newPending()
	err := s.onLoop(ctx, func() error {
		n, err := s.tree.Node(dirID)
		if err != nil {
			return err
		}
		if !n.IsDir() || n.ID == tree.RootID {
			return fmt.Errorf("upload destination must be a directory: %w", model.ErrNotValid)
		}
		dst, err := s.tree.Path(dirID)
		if err != nil {
			return err
		}

		_, err = s.scheduler.Submit(model.NewUploadTask(localPath, dst), func(t model.Task) { p.finish(t.Err) })
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("could not upload: %w", err)
	}

	return p, nil
}

// Command runs a remote command as a task, its output is only logged.
func (s *Service) Command(ctx context.Context, command string) (*Pending, error) {
	p := newPending()
	err := s.onLoop(ctx, func() error {
		_, err := s.scheduler.Submit(model.NewCommandTask(command), func(t model.Task) { p.finish(t.Err) })
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("could not run command: %w", err)
	}

	return p, nil
}

// Rename renames a node. The cache shows the new name right away, if the remote rename
// fails the old name is restored. On success the parent directory is listed again while
// ctx lasts.
func (s *Service) Rename(ctx context.Context, id tree.NodeID, newName string) (*Pending, error) {
	p := newPending()
	err := s.onLoop(ctx, func() error {
		refs, err := s.resolve([]tree.NodeID{id})
		if err != nil {
			return err
		}
		ref := refs[0]

		if err := s.dialect.ValidName(newName); err != nil {
			return err
		}

		oldName, err := s.tree.Rename(id, newName)
		if err != nil {
			return err
		}
		logger := s.logger.WithValues(log.Kv{"path": ref.path})

		cmd := s.dialect.RenameCommand(ref.path, newName)
		_, err = s.scheduler.Submit(model.NewCommandTask(cmd), func(t model.Task) {
			if t.Err != nil {
				if _, err := s.tree.Rename(id, oldName); err != nil {
					logger.Warningf("Could not restore name: %s", err)
				}
				logger.Errorf("Rename to %q failed, name restored: %s", newName, t.Err)
				p.finish(t.Err)
				return
			}

			logger.Infof("Renamed to %q", newName)
			s.refresh(ctx, ref.parent, func(err error) {
				if err != nil {
					logger.Warningf("Could not list parent after rename: %s", err)
				}
				p.finish(nil)
			})
		})
		if err != nil {
			_, _ = s.tree.Rename(id, oldName)
			return err
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not rename: %w", err)
	}

	return p, nil
}

// Delete removes the selected nodes after the user confirms it.
//
// Nodes are deleted one after another, each one is removed from the cache once its remote
// deletion succeeds. The first failure stops the batch, nothing already deleted is restored.
func (s *Service) Delete(ctx context.Context, ids []tree.NodeID) (*Pending, error) {
	var refs []nodeRef
	err := s.onLoop(ctx, func() error {
		var err error
		refs, err = s.resolve(ids)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("could not delete: %w", err)
	}

	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.name)
	}
	ok, err := s.confirmer.Confirm(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("could not confirm delete: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("delete of %d entries: %w", len(refs), model.ErrRefused)
	}

	p := newPending()
	if err := s.loop.Do(ctx, func() { s.deleteNext(refs, p) }); err != nil {
		return nil, err
	}

	return p, nil
}

// deleteNext runs on the loop, it chains the next deletion from the previous completion.
func (s *Service) deleteNext(refs []nodeRef, p *Pending) {
	if len(refs) == 0 {
		p.finish(nil)
		return
	}

	ref := refs[0]
	cmd := s.dialect.RemoveFileCommand(ref.path)
	if ref.dir {
		cmd = s.dialect.RemoveDirCommand(ref.path)
	}

	_, err := s.scheduler.Submit(model.NewCommandTask(cmd), func(t model.Task) {
		if t.Err != nil {
			s.logger.Errorf("Could not delete %q, stopping with %d pending: %s", ref.path, len(refs)-1, t.Err)
			p.finish(fmt.Errorf("could not delete %q: %w", ref.path, t.Err))
			return
		}

		// An ancestor deleted in the same batch already took it out.
		if err := s.tree.Remove(ref.id); err != nil && !errors.Is(err, model.ErrNotFound) {
			s.logger.Warningf("Could not remove %q from cache: %s", ref.path, err)
		}
		s.logger.Infof("Deleted %q", ref.path)

		s.deleteNext(refs[1:], p)
	})
	if err != nil {
		p.finish(err)
	}
}

// DragStart stages the selected nodes locally for a drag gesture. The caller owns the
// gesture and must end it.
func (s *Service) DragStart(ctx context.Context, ids []tree.NodeID) (*staging.Gesture, error) {
	if s.stager == nil {
		return nil, fmt.Errorf("drag is not configured: %w", model.ErrNotValid)
	}

	var paths []string
	err := s.onLoop(ctx, func() error {
		refs, err := s.resolve(ids)
		if err != nil {
			return err
		}
		for _, r := range refs {
			paths = append(paths, r.path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not start drag: %w", err)
	}

	return s.stager.Start(ctx, paths)
}

// Drop uploads local paths dropped on a target node (nil when dropped outside any node).
//
// Each path is uploaded independently. When at least one upload succeeds and the
// destination directory is loaded, it is listed again while ctx lasts.
func (s *Service) Drop(ctx context.Context, localPaths []string, target *tree.NodeID) (*Pending, error) {
	if len(localPaths) == 0 {
		return nil, fmt.Errorf("nothing dropped: %w", model.ErrNotValid)
	}

	p := newPending()
	err := s.onLoop(ctx, func() error {
		dest, err := staging.DropDestination(s.tree, target)
		if err != nil {
			return err
		}
		destPath, err := s.tree.Path(dest)
		if err != nil {
			return err
		}
		logger := s.logger.WithValues(log.Kv{"destination": destPath})

		tasks := make([]model.Task, 0, len(localPaths))
		for _, lp := range localPaths {
			tasks = append(tasks, model.NewUploadTask(lp, destPath))
		}

		return s.submitBatch(tasks, func(done []model.Task) {
			uploaded := 0
			for _, t := range done {
				if t.Err != nil {
					logger.Errorf("Dropped %q skipped: %s", t.LocalPath, t.Err)
					continue
				}
				uploaded++
			}
			taskErr := tasksErr(done)

			n, err := s.tree.Node(dest)
			if uploaded == 0 || err != nil || dest == tree.RootID || !n.Loaded {
				p.finish(taskErr)
				return
			}

			s.refresh(ctx, dest, func(err error) { p.finish(errors.Join(taskErr, err)) })
		})
	})
	if err != nil {
		return nil, fmt.Errorf("could not drop: %w", err)
	}

	return p, nil
}
