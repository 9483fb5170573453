// Package mirror maintains a copy of installed packages on the
// fast-scratch volume and re-points binary symlinks at it. The scratch
// volume is wiped between sessions, so a sync rebuilds the mirror from
// the persistent package root every time.
package mirror

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/diem-pm/diem/pkg/core"
	"github.com/diem-pm/diem/pkg/database"
	"github.com/diem-pm/diem/pkg/fsutil"
)

const defaultConcurrency = 4

// Config carries the paths a Syncer operates on.
type Config struct {
	// PackageRoot is the persistent package directory.
	PackageRoot string

	// MirrorRoot is the fast-scratch mirror directory.
	MirrorRoot string

	// BinariesPath is the personal bin directory whose symlinks get
	// re-pointed at the mirror.
	BinariesPath string

	// Concurrency bounds how many packages are copied in parallel.
	// Zero means a small default.
	Concurrency int

	// Logger for sync output. Defaults to a no-op logger.
	Logger *zap.SugaredLogger
}

// Syncer mirrors installed packages onto the scratch volume.
type Syncer struct {
	config Config
	db     *database.Store
}

// NewSyncer creates a Syncer over the given database.
func NewSyncer(config Config, db *database.Store) *Syncer {
	if config.Concurrency <= 0 {
		config.Concurrency = defaultConcurrency
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop().Sugar()
	}
	return &Syncer{config: config, db: db}
}

// Sync rebuilds the mirror from the persistent package root and points
// every installed binary's symlink into the mirror. Packages whose
// persistent directory is missing are skipped with a warning; any copy
// or relink failure fails the sync.
func (s *Syncer) Sync() error {
	log := s.config.Logger

	records, err := s.db.All()
	if err != nil {
		return fmt.Errorf("reading package database: %w", err)
	}

	log.Infof("Syncing %d package(s) to %s", len(records), s.config.MirrorRoot)

	if err := os.RemoveAll(s.config.MirrorRoot); err != nil {
		return fmt.Errorf("clearing mirror: %w", err)
	}
	if err := os.MkdirAll(s.config.MirrorRoot, 0755); err != nil {
		return fmt.Errorf("creating mirror root: %w", err)
	}

	var group errgroup.Group
	group.SetLimit(s.config.Concurrency)

	for _, record := range records {
		record := record
		group.Go(func() error {
			return s.syncPackage(record)
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	log.Infof("Sync complete")
	return nil
}

// syncPackage copies one package into the mirror and re-points its
// binary symlinks.
func (s *Syncer) syncPackage(record *database.Record) error {
	log := s.config.Logger
	ref := record.Reference()

	sourceDir := filepath.Join(s.config.PackageRoot, ref.DirName())
	if !fsutil.Exists(sourceDir) {
		log.Warnf("Skipping %s: %s does not exist", ref, sourceDir)
		return nil
	}

	mirrorDir := filepath.Join(s.config.MirrorRoot, ref.DirName())
	if err := fsutil.CopyDir(sourceDir, mirrorDir); err != nil {
		return fmt.Errorf("mirroring %s: %w", ref, err)
	}

	if err := s.relinkBinaries(ref, record.Binaries, mirrorDir); err != nil {
		return err
	}

	log.Debugf("Mirrored %s to %s", ref, mirrorDir)
	return nil
}

// relinkBinaries replaces the package's symlinks in the personal bin
// directory with links into the mirror.
func (s *Syncer) relinkBinaries(ref core.Reference, binaries []string, mirrorDir string) error {
	for _, binary := range binaries {
		source := filepath.Join(mirrorDir, binary)
		link := filepath.Join(s.config.BinariesPath, filepath.Base(binary))

		if _, err := os.Lstat(link); err == nil {
			if err := os.Remove(link); err != nil {
				return fmt.Errorf("removing symlink %s: %w", link, err)
			}
		}

		if err := os.Symlink(source, link); err != nil {
			return fmt.Errorf("relinking %s: %w", ref, err)
		}
	}
	return nil
}
