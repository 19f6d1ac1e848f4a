package io

import (
	"context"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slok/rbrowse/internal/model"
)

// DefaultSSHPort is used when the profile doesn't set a port.
const DefaultSSHPort = 22

// ProfileYAMLRepository loads session profiles from YAML files.
type ProfileYAMLRepository struct {
	fs fs.FS
}

// NewProfileYAMLRepository creates a new YAML profile repository.
func NewProfileYAMLRepository(filesystem fs.FS) *ProfileYAMLRepository {
	return &ProfileYAMLRepository{fs: filesystem}
}

// GetProfile loads a session profile from a YAML file and returns a validated domain model.
func (r *ProfileYAMLRepository) GetProfile(ctx context.Context, path string) (model.SessionProfile, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.SessionProfile{}, fmt.Errorf("reading profile file: %w", err)
	}

	if ctx.Err() != nil {
		return model.SessionProfile{}, ctx.Err()
	}

	var p SessionProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return model.SessionProfile{}, fmt.Errorf("parsing YAML: %w", err)
	}

	if err := p.validate(); err != nil {
		return model.SessionProfile{}, fmt.Errorf("invalid profile: %w: %w", model.ErrNotValid, err)
	}

	return p.toModel(), nil
}

// SessionProfile represents the YAML structure of a session profile.
type SessionProfile struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	PrivateKey     string `yaml:"private_key"`
	KnownHosts     string `yaml:"known_hosts"`
	Dialect        string `yaml:"dialect"`
	Workers        int    `yaml:"workers"`
	DownloadDir    string `yaml:"download_dir"`
	ConnectTimeout string `yaml:"connect_timeout"`
}

func (p SessionProfile) validate() error {
	if p.Host == "" {
		return fmt.Errorf("host is required")
	}
	if p.User == "" {
		return fmt.Errorf("user is required")
	}
	if p.Port < 0 || p.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got: %d", p.Port)
	}
	switch strings.ToLower(p.Dialect) {
	case "", "windows", "posix":
	default:
		return fmt.Errorf("dialect must be windows or posix, got: %q", p.Dialect)
	}
	if p.Workers < 0 {
		return fmt.Errorf("workers can't be negative, got: %d", p.Workers)
	}
	if p.ConnectTimeout != "" {
		d, err := time.ParseDuration(p.ConnectTimeout)
		if err != nil {
			return fmt.Errorf("connect_timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("connect_timeout must be positive, got: %s", d)
		}
	}
	return nil
}

// toModel expects a validated profile.
func (p SessionProfile) toModel() model.SessionProfile {
	port := p.Port
	if port == 0 {
		port = DefaultSSHPort
	}

	var timeout time.Duration
	if p.ConnectTimeout != "" {
		timeout, _ = time.ParseDuration(p.ConnectTimeout)
	}

	return model.SessionProfile{
		Host:           p.Host,
		Port:           port,
		User:           p.User,
		PrivateKeyPath: p.PrivateKey,
		KnownHostsFile: p.KnownHosts,
		Dialect:        strings.ToLower(p.Dialect),
		Workers:        p.Workers,
		DownloadDir:    p.DownloadDir,
		ConnectTimeout: timeout,
	}
}
