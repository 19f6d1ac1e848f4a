package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/run"

	"github.com/slok/rbrowse/internal/conventions"
	"github.com/slok/rbrowse/internal/explorer"
	"github.com/slok/rbrowse/internal/loop"
	"github.com/slok/rbrowse/internal/model"
	"github.com/slok/rbrowse/internal/remote"
	"github.com/slok/rbrowse/internal/ssh"
	"github.com/slok/rbrowse/internal/staging"
	"github.com/slok/rbrowse/internal/storage/sqlite"
	"github.com/slok/rbrowse/internal/task"
	"github.com/slok/rbrowse/internal/tree"
)

// session is a connected browser: the remote client plus the interactive context, the
// scheduler and the explorer service on top of them.
type session struct {
	profile  model.SessionProfile
	client   *ssh.Client
	repo     *sqlite.Repository
	loop     *loop.Loop
	sched    *task.Scheduler
	stager   *staging.Stager
	explorer *explorer.Service
	bar      *progressBar
}

// newSession connects to the remote machine of the profile. The session must be closed.
func newSession(ctx context.Context, root *RootCommand, confirmer explorer.Confirmer) (*session, error) {
	logger := root.Logger

	profile, err := root.Profile(ctx)
	if err != nil {
		return nil, err
	}

	dialect, err := remote.NewDialect(profile.Dialect)
	if err != nil {
		return nil, err
	}

	privKey, err := privateKey(root.DataDir, profile.PrivateKeyPath)
	if err != nil {
		return nil, err
	}

	client, err := ssh.NewClient(ctx, ssh.ClientConfig{
		Host:           profile.Host,
		Port:           profile.Port,
		User:           profile.User,
		PrivateKey:     privKey,
		Password:       root.Conn.Password,
		KnownHostsFile: profile.KnownHostsFile,
		ConnectTimeout: profile.ConnectTimeout,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not connect: %w", err)
	}

	s := &session{profile: profile, client: client}
	ok := false
	defer func() {
		if !ok {
			_ = s.Close()
		}
	}()

	s.repo, err = sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: conventions.DBPath(root.DataDir),
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create task journal: %w", err)
	}

	s.loop, err = loop.New(loop.Config{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create loop: %w", err)
	}

	s.bar = newProgressBar(root.Stderr, !root.NoProgress)
	s.sched, err = task.NewScheduler(task.SchedulerConfig{
		Client:     client,
		Poster:     s.loop,
		Workers:    profile.Workers,
		Repository: s.repo,
		OnProgress: s.bar.Render,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create scheduler: %w", err)
	}

	s.stager, err = staging.NewStager(staging.StagerConfig{
		Client: client,
		Root:   conventions.StagingRoot(root.DataDir),
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create stager: %w", err)
	}
	if err := s.stager.Purge(); err != nil {
		logger.Warningf("Could not purge stale staging directories: %s", err)
	}

	s.explorer, err = explorer.NewService(explorer.ServiceConfig{
		Client:    client,
		Dialect:   dialect,
		Loop:      s.loop,
		Scheduler: s.sched,
		Stager:    s.stager,
		Confirmer: confirmer,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create explorer: %w", err)
	}

	ok = true
	return s, nil
}

// Run runs fn with the interactive context and the workers running, both are stopped
// once fn returns.
func (s *session) Run(ctx context.Context, fn func(ctx context.Context, svc *explorer.Service) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g run.Group

	// Interactive context.
	{
		g.Add(
			func() error { return s.loop.Run(ctx) },
			func(_ error) { cancel() },
		)
	}

	// Workers.
	{
		g.Add(
			func() error { return s.sched.Run(ctx) },
			func(_ error) { cancel() },
		)
	}

	// Command.
	{
		fnCtx, fnCancel := context.WithCancel(ctx)
		defer fnCancel()

		g.Add(
			func() error {
				err := fn(fnCtx, s.explorer)
				// The bar belongs to the interactive context.
				_ = s.loop.Do(ctx, s.bar.Close)
				return err
			},
			func(_ error) { fnCancel() },
		)
	}

	err := g.Run()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// remotePath normalizes a remote path typed by the user, Windows users can use
// backslashes.
func (s *session) remotePath(p string) string {
	if s.profile.Dialect == remote.DialectWindows {
		p = strings.ReplaceAll(p, `\`, tree.Separator)
	}
	return p
}

// resolve expands the tree down to every path and returns their node ids.
func (s *session) resolve(ctx context.Context, svc *explorer.Service, paths []string) ([]tree.NodeID, error) {
	ids := make([]tree.NodeID, 0, len(paths))
	for _, p := range paths {
		id, err := svc.ExpandPath(ctx, s.remotePath(p))
		if err != nil {
			return nil, fmt.Errorf("could not resolve %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Close releases the remote connection and the journal.
func (s *session) Close() error {
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			return fmt.Errorf("could not close task journal: %w", err)
		}
	}
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("could not close remote session: %w", err)
	}
	return nil
}

// privateKey loads the profile key or, when there is none, the rbrowse identity if it
// was generated. Nil means password authentication.
func privateKey(dataDir, path string) ([]byte, error) {
	if path != "" {
		return ssh.LoadPrivateKeyFile(path)
	}

	km := ssh.NewKeyManager(conventions.SSHKeyDir(dataDir))
	if !km.KeysExist() {
		return nil, nil
	}
	return km.LoadPrivateKey()
}
