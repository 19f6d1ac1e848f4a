package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default rbrowse data directory name (relative to home).
	DefaultDataDir = ".rbrowse"
	// DBFile is the task journal database filename.
	DBFile = "rbrowse.db"
	// StagingDir is the subdirectory where drag gestures stage their files.
	StagingDir = "staging"
	// DownloadsDir is the subdirectory used as download destination when none is given.
	DownloadsDir = "downloads"
	// SSHDir is the subdirectory holding the rbrowse SSH identity.
	SSHDir = "ssh"
	// ProfileFile is the default session profile filename.
	ProfileFile = "profile.yaml"

	// SSH key files.

	// SSHPrivateKeyFile is the filename for the rbrowse SSH private key.
	SSHPrivateKeyFile = "id_ed25519"
	// SSHPublicKeyFile is the filename for the rbrowse SSH public key.
	SSHPublicKeyFile = "id_ed25519.pub"
)

// DBPath returns the path of the task journal database.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}

// StagingRoot returns the directory where the per gesture staging areas are created.
func StagingRoot(dataDir string) string {
	return filepath.Join(dataDir, StagingDir)
}

// DownloadsPath returns the default download destination.
func DownloadsPath(dataDir string) string {
	return filepath.Join(dataDir, DownloadsDir)
}

// SSHKeyDir returns the directory of the rbrowse SSH identity.
func SSHKeyDir(dataDir string) string {
	return filepath.Join(dataDir, SSHDir)
}

// ProfilePath returns the default session profile path.
func ProfilePath(dataDir string) string {
	return filepath.Join(dataDir, ProfileFile)
}
