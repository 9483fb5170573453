// pkg/installer/types.go
package installer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/diem-pm/diem/pkg/database"
)

// Downloader fetches remote package assets. Satisfied by
// fetch.CircuitBreakerFetcher.
type Downloader interface {
	DownloadFile(ctx context.Context, url, destPath string) (int64, error)
}

// Config configures the package installer
type Config struct {
	PackageRoot   string // persistent package storage
	BinariesPath  string // personal bin directory for symlinks
	MirrorRoot    string // fast-scratch mirror (cleaned on uninstall)
	TempDir       string // downloads, scripts, lock files
	ScriptTimeout time.Duration
	Logger        *zap.SugaredLogger
}

// Installer performs install, uninstall and update operations against
// the persistent package root, the personal bin directory and the
// package database.
type Installer struct {
	config     *Config
	db         *database.Store
	downloader Downloader
}

// New creates an Installer.
func New(cfg *Config, db *database.Store, downloader Downloader) *Installer {
	if cfg.ScriptTimeout == 0 {
		cfg.ScriptTimeout = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	return &Installer{
		config:     cfg,
		db:         db,
		downloader: downloader,
	}
}
