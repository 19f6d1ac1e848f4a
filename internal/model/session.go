package model

import "time"

// SessionProfile is the connection profile of a remote machine.
type SessionProfile struct {
	Host string
	Port int
	User string
	// PrivateKeyPath is the path of the SSH private key, the key itself is never stored.
	PrivateKeyPath string
	// KnownHostsFile enables host key verification when set.
	KnownHostsFile string
	// Dialect is the remote command dialect (windows or posix).
	Dialect        string
	Workers        int
	DownloadDir    string
	ConnectTimeout time.Duration
}
