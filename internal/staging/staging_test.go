package staging_test

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/rbrowse/internal/model"
	"github.com/slok/rbrowse/internal/remote/remotemock"
	"github.com/slok/rbrowse/internal/staging"
	"github.com/slok/rbrowse/internal/tree"
)

// fetchOK makes the mock write a small file like a real fetch would.
func fetchOK(m *remotemock.MockClient, remotePath string) {
	m.On("GetFile", mock.Anything, remotePath, mock.Anything).Once().Run(func(args mock.Arguments) {
		dir := args.String(2)
		_ = os.WriteFile(filepath.Join(dir, path.Base(remotePath)), []byte("data"), 0o644)
	}).Return(nil)
}

func TestStagerStart(t *testing.T) {
	tests := map[string]struct {
		mock     func(m *remotemock.MockClient)
		paths    []string
		expNames []string
	}{
		"All the items fetched should be in the payload.": {
			paths: []string{"C:/dir/a.txt", "C:/dir/b.txt"},
			mock: func(m *remotemock.MockClient) {
				fetchOK(m, "C:/dir/a.txt")
				fetchOK(m, "C:/dir/b.txt")
			},
			expNames: []string{"a.txt", "b.txt"},
		},

		"A failing item should be omitted without aborting the rest.": {
			paths: []string{"C:/1.txt", "C:/2.txt", "C:/3.txt"},
			mock: func(m *remotemock.MockClient) {
				fetchOK(m, "C:/1.txt")
				m.On("GetFile", mock.Anything, "C:/2.txt", mock.Anything).Once().Return(model.ErrPathNotFound)
				fetchOK(m, "C:/3.txt")
			},
			expNames: []string{"1.txt", "3.txt"},
		},

		"All failing should return an empty payload.": {
			paths: []string{"/a", "/b"},
			mock: func(m *remotemock.MockClient) {
				m.On("GetFile", mock.Anything, "/a", mock.Anything).Once().Return(model.ErrServer)
				m.On("GetFile", mock.Anything, "/b", mock.Anything).Once().Return(model.ErrLocalIO)
			},
			expNames: []string{},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			mc := remotemock.NewMockClient(t)
			test.mock(mc)

			root := t.TempDir()
			s, err := staging.NewStager(staging.StagerConfig{Client: mc, Root: root})
			require.NoError(err)

			g, err := s.Start(context.Background(), test.paths)
			require.NoError(err)

			p := g.Payload()
			gotNames := []string{}
			for _, lp := range p.Paths {
				assert.Equal(g.Dir(), filepath.Dir(lp))
				assert.FileExists(lp)
				gotNames = append(gotNames, filepath.Base(lp))
			}
			assert.Equal(test.expNames, gotNames)
			assert.Len(p.URIs, len(p.Paths))

			// The staging area is removed once the gesture ends.
			require.NoError(g.End())
			assert.NoDirExists(g.Dir())
			require.NoError(g.End())
		})
	}
}

func TestStagerGesturesAreIsolated(t *testing.T) {
	mc := remotemock.NewMockClient(t)
	mc.On("GetFile", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	s, err := staging.NewStager(staging.StagerConfig{Client: mc, Root: t.TempDir()})
	require.NoError(t, err)

	g1, err := s.Start(context.Background(), []string{"/a"})
	require.NoError(t, err)
	g2, err := s.Start(context.Background(), []string{"/a"})
	require.NoError(t, err)

	assert.NotEqual(t, g1.Dir(), g2.Dir())

	require.NoError(t, g1.End())
	assert.DirExists(t, g2.Dir())
	require.NoError(t, g2.End())
}

func TestStagerStartSameNames(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// Every fetch writes its remote path as content.
	mc := remotemock.NewMockClient(t)
	for _, rp := range []string{"/a/x.txt", "/b/x.txt", "/c/x.txt", "/d/1"} {
		rp := rp
		mc.On("GetFile", mock.Anything, rp, mock.Anything).Once().Run(func(args mock.Arguments) {
			_ = os.WriteFile(filepath.Join(args.String(2), path.Base(rp)), []byte(rp), 0o644)
		}).Return(nil)
	}

	s, err := staging.NewStager(staging.StagerConfig{Client: mc, Root: t.TempDir()})
	require.NoError(err)

	g, err := s.Start(context.Background(), []string{"/a/x.txt", "/b/x.txt", "/c/x.txt", "/d/1"})
	require.NoError(err)
	defer g.End()

	p := g.Payload()
	require.Len(p.Paths, 4)
	assert.Equal(filepath.Join(g.Dir(), "x.txt"), p.Paths[0])
	assert.Equal(filepath.Join(g.Dir(), "1", "x.txt"), p.Paths[1])
	assert.Equal(filepath.Join(g.Dir(), "2", "x.txt"), p.Paths[2])
	// "1" is already a subdirectory so the item gets its own.
	assert.Equal(filepath.Join(g.Dir(), "3", "1"), p.Paths[3])

	for i, exp := range []string{"/a/x.txt", "/b/x.txt", "/c/x.txt", "/d/1"} {
		got, err := os.ReadFile(p.Paths[i])
		require.NoError(err)
		assert.Equal(exp, string(got))
	}
}

func TestStagerPurge(t *testing.T) {
	old := time.Now().Add(-48 * time.Hour)
	oldULID := func() string {
		return ulid.MustNew(ulid.Timestamp(old), ulid.DefaultEntropy()).String()
	}

	tests := map[string]struct {
		name     string
		mtime    time.Time
		expExist bool
	}{
		"An old abandoned staging directory should be removed.": {
			name:     oldULID(),
			mtime:    old,
			expExist: false,
		},

		"A recent staging directory should be kept.": {
			name:     ulid.Make().String(),
			mtime:    time.Now(),
			expExist: true,
		},

		"An old staging directory that is still being written should be kept.": {
			name:     oldULID(),
			mtime:    time.Now(),
			expExist: true,
		},

		"A directory that is not a staging directory should be kept.": {
			name:     "keep-me",
			mtime:    old,
			expExist: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			root := t.TempDir()
			dir := filepath.Join(root, test.name)
			require.NoError(os.MkdirAll(dir, 0o755))
			require.NoError(os.Chtimes(dir, test.mtime, test.mtime))

			s, err := staging.NewStager(staging.StagerConfig{Client: remotemock.NewMockClient(t), Root: root})
			require.NoError(err)

			require.NoError(s.Purge())
			if test.expExist {
				assert.DirExists(t, dir)
			} else {
				assert.NoDirExists(t, dir)
			}
		})
	}
}

func TestStagerPurgeKeepsOtherProcessGestures(t *testing.T) {
	require := require.New(t)

	root := t.TempDir()
	mc := remotemock.NewMockClient(t)
	fetchOK(mc, "/a/x.txt")

	// Two processes sharing the same staging root.
	s1, err := staging.NewStager(staging.StagerConfig{Client: mc, Root: root})
	require.NoError(err)
	s2, err := staging.NewStager(staging.StagerConfig{Client: remotemock.NewMockClient(t), Root: root})
	require.NoError(err)

	g, err := s1.Start(context.Background(), []string{"/a/x.txt"})
	require.NoError(err)
	defer g.End()

	require.NoError(s2.Purge())

	require.Len(g.Payload().Paths, 1)
	assert.FileExists(t, g.Payload().Paths[0])
}

func TestFileURI(t *testing.T) {
	tests := map[string]struct {
		path   string
		expURI string
	}{
		"A unix path.":              {path: "/tmp/staging/a.txt", expURI: "file:///tmp/staging/a.txt"},
		"Spaces should be escaped.": {path: "/tmp/my file.txt", expURI: "file:///tmp/my%20file.txt"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expURI, staging.FileURI(test.path))
		})
	}
}

func TestDropDestination(t *testing.T) {
	tr := tree.New()
	tr.SetVolumes([]string{"C:/"})
	vols, err := tr.Children(tree.RootID)
	require.NoError(t, err)
	vol := vols[0]
	require.NoError(t, tr.SetListing(vol, model.Listing{
		Dirs:  []model.Entry{{Name: "dir"}},
		Files: []model.Entry{{Name: "a.txt"}},
	}))
	children, err := tr.Children(vol)
	require.NoError(t, err)
	dir, file := children[0], children[1]
	missing := tree.NodeID(999)

	tests := map[string]struct {
		target *tree.NodeID
		expID  tree.NodeID
		expErr bool
	}{
		"No target should drop on the root.":       {target: nil, expID: tree.RootID},
		"A directory target should be used as is.": {target: &dir, expID: dir},
		"A file target should drop on its parent.": {target: &file, expID: vol},
		"A missing target should fail.":            {target: &missing, expErr: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			id, err := staging.DropDestination(tr, test.target)
			if test.expErr {
				assert.ErrorIs(t, err, model.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expID, id)
		})
	}
}
