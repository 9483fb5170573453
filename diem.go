// diem.go
package diem

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/diem-pm/diem/pkg/core"
	"github.com/diem-pm/diem/pkg/database"
	"github.com/diem-pm/diem/pkg/fetch"
	"github.com/diem-pm/diem/pkg/installer"
	"github.com/diem-pm/diem/pkg/mirror"
	"github.com/diem-pm/diem/pkg/publish"
	"github.com/diem-pm/diem/pkg/registry"
)

// Re-export core types for convenience
type (
	Config    = core.Config
	Package   = core.Package
	Reference = core.Reference
	Record    = database.Record
)

// DefaultConfig returns a configuration for the current user's
// shared-storage layout.
func DefaultConfig() *Config {
	return core.DefaultConfig()
}

// Manager is the personal package manager: it resolves references
// against trusted provider directories, installs into the persistent
// package root, links binaries, and mirrors installs to fast scratch
// storage.
type Manager struct {
	config    *core.Config
	logger    *zap.SugaredLogger
	db        *database.Store
	registry  *registry.Manager
	installer *installer.Installer
	fetcher   *fetch.CircuitBreakerFetcher
	syncer    *mirror.Syncer
}

// NewManager creates a manager over the given configuration, creating
// the directories it operates on. A nil logger disables logging.
func NewManager(cfg *core.Config, logger *zap.SugaredLogger) (*Manager, error) {
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("preparing directories: %w", err)
	}

	registryPath, err := core.RegistryConfigPath()
	if err != nil {
		return nil, err
	}

	reg, err := registry.NewManager(registryPath, cfg.SharedRoot, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing provider registry: %w", err)
	}

	db := database.New(cfg.DatabasePath(), logger)
	fetcher := fetch.NewCircuitBreakerFetcher(fetch.NewFetcher(fetch.WithLogger(logger)))

	inst := installer.New(&installer.Config{
		PackageRoot:  cfg.PackageRoot,
		BinariesPath: cfg.BinariesPath,
		MirrorRoot:   cfg.MirrorRoot(),
		TempDir:      cfg.TempDir,
		Logger:       logger,
	}, db, fetcher)

	syncer := mirror.NewSyncer(mirror.Config{
		PackageRoot:  cfg.PackageRoot,
		MirrorRoot:   cfg.MirrorRoot(),
		BinariesPath: cfg.BinariesPath,
		Logger:       logger,
	}, db)

	return &Manager{
		config:    cfg,
		logger:    logger,
		db:        db,
		registry:  reg,
		installer: inst,
		fetcher:   fetcher,
		syncer:    syncer,
	}, nil
}

// Registry exposes the provider registry for provider management
// commands.
func (m *Manager) Registry() *registry.Manager {
	return m.registry
}

// Install installs a package. The argument is either a
// "provider:name" reference (bare names use the default provider) or a
// direct http(s) URL to a package asset whose package.json sits next
// to it.
func (m *Manager) Install(ctx context.Context, rawRef string, force bool) error {
	if isRemoteURL(rawRef) {
		return m.installFromURL(ctx, rawRef, force)
	}

	ref, pkg, sourceDir, err := m.resolve(rawRef)
	if err != nil {
		return &Error{Op: "install", Package: rawRef, Err: err}
	}

	if err := m.installer.Install(ctx, pkg, ref, sourceDir, force); err != nil {
		return &Error{Op: "install", Package: ref.Key(), Err: err}
	}
	return nil
}

// installFromURL fetches the descriptor next to the asset and installs
// from the download.
func (m *Manager) installFromURL(ctx context.Context, assetURL string, force bool) error {
	pkg, err := m.fetcher.FetchPackageInfo(ctx, assetURL)
	if err != nil {
		return &Error{Op: "install", Package: assetURL, Err: err}
	}
	if pkg.URL == "" {
		pkg.URL = assetURL
	}
	if pkg.Provider == "" {
		pkg.Provider = "remote"
	}

	ref := pkg.Reference()
	if err := m.installer.Install(ctx, pkg, ref, "", force); err != nil {
		return &Error{Op: "install", Package: ref.Key(), Err: err}
	}
	return nil
}

// Uninstall removes an installed package.
func (m *Manager) Uninstall(rawRef string) error {
	ref, err := m.parseInstalledReference(rawRef)
	if err != nil {
		return &Error{Op: "uninstall", Package: rawRef, Err: err}
	}

	if err := m.installer.Uninstall(ref); err != nil {
		return &Error{Op: "uninstall", Package: ref.Key(), Err: err}
	}
	return nil
}

// Update updates one installed package to the version its source
// currently offers.
func (m *Manager) Update(ctx context.Context, rawRef string, force bool) error {
	ref, err := m.parseInstalledReference(rawRef)
	if err != nil {
		return &Error{Op: "update", Package: rawRef, Err: err}
	}

	if err := m.updateOne(ctx, ref, force); err != nil {
		return &Error{Op: "update", Package: ref.Key(), Err: err}
	}
	return nil
}

// UpdateResult reports the outcome of one package within UpdateAll.
type UpdateResult struct {
	Reference  core.Reference
	OldVersion string
	NewVersion string
	Updated    bool
	Err        error
}

// UpdateAll updates every installed package. Candidate versions are
// resolved concurrently; the updates themselves run one at a time
// because the database performs whole-document writes. One package
// failing does not stop the others.
func (m *Manager) UpdateAll(ctx context.Context, force bool) ([]UpdateResult, error) {
	records, err := m.db.All()
	if err != nil {
		return nil, &Error{Op: "update", Err: err}
	}

	type item struct {
		ref core.Reference
		rec *database.Record
	}
	items := make([]item, 0, len(records))
	for _, rec := range records {
		items = append(items, item{ref: rec.Reference(), rec: rec})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ref.Key() < items[j].ref.Key() })

	type candidate struct {
		pkg       *core.Package
		sourceDir string
		err       error
	}
	candidates := make([]candidate, len(items))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(4)
	for idx, it := range items {
		idx, it := idx, it
		group.Go(func() error {
			pkg, sourceDir, err := m.resolveRef(groupCtx, it.ref, it.rec)
			candidates[idx] = candidate{pkg: pkg, sourceDir: sourceDir, err: err}
			return nil
		})
	}
	group.Wait()

	results := make([]UpdateResult, 0, len(items))
	for idx, it := range items {
		ref, rec := it.ref, it.rec
		result := UpdateResult{Reference: ref, OldVersion: rec.Version}

		cand := candidates[idx]
		if cand.err != nil {
			result.Err = cand.err
			results = append(results, result)
			continue
		}

		result.NewVersion = cand.pkg.Version
		if err := m.installer.Update(ctx, ref, cand.pkg, cand.sourceDir, force); err != nil {
			result.Err = err
		} else {
			result.Updated = result.OldVersion != result.NewVersion || force
		}
		results = append(results, result)
	}

	return results, nil
}

// updateOne resolves the reference against its source and hands the
// update to the installer.
func (m *Manager) updateOne(ctx context.Context, ref core.Reference, force bool) error {
	rec, err := m.db.Get(ref)
	if err != nil {
		return err
	}

	pkg, sourceDir, err := m.resolveRef(ctx, ref, rec)
	if err != nil {
		return err
	}

	return m.installer.Update(ctx, ref, pkg, sourceDir, force)
}

// Sync rebuilds the fast-scratch mirror and points installed binaries
// at it.
func (m *Manager) Sync() error {
	if err := m.syncer.Sync(); err != nil {
		return &Error{Op: "sync", Err: err}
	}
	return nil
}

// ListInstalled returns the installed records sorted by reference.
func (m *Manager) ListInstalled() ([]*database.Record, error) {
	records, err := m.db.All()
	if err != nil {
		return nil, &Error{Op: "list", Err: err}
	}

	out := make([]*database.Record, 0, len(records))
	for _, rec := range records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Reference().Key() < out[j].Reference().Key()
	})

	return out, nil
}

// ListAvailable lists the packages offered by one provider, or by all
// trusted providers when provider is empty.
func (m *Manager) ListAvailable(provider string) ([]*core.Package, error) {
	packages, err := m.registry.ListPackages(provider)
	if err != nil {
		return nil, &Error{Op: "list", Err: err}
	}
	return packages, nil
}

// Search finds available packages whose name contains the query.
func (m *Manager) Search(query string) ([]*core.Package, error) {
	packages, err := m.registry.SearchPackages(query)
	if err != nil {
		return nil, &Error{Op: "search", Err: err}
	}
	return packages, nil
}

// Info returns the descriptor a provider currently offers for the
// reference, plus the installed record when the package is installed.
// Either return value may be nil, never both.
func (m *Manager) Info(rawRef string) (*core.Package, *database.Record, error) {
	ref, err := m.registry.ParseReference(rawRef)
	if err != nil {
		return nil, nil, &Error{Op: "info", Package: rawRef, Err: err}
	}

	var available *core.Package
	if location, err := m.registry.ResolveLocation(ref); err == nil {
		available, _ = m.registry.PackageInfoFromPath(location)
	}

	installed, err := m.db.Get(ref)
	if err != nil {
		installed = nil
	}

	if available == nil && installed == nil {
		return nil, nil, &Error{Op: "info", Package: ref.Key(), Err: core.ErrPackageNotFound}
	}

	return available, installed, nil
}

// Publish copies the files listed in the project's diem.toml into the
// current user's provider directory and returns the published path.
func (m *Manager) Publish(projectDir string) (string, error) {
	manifest, err := publish.LoadManifest(filepath.Join(projectDir, "diem.toml"))
	if err != nil {
		return "", &Error{Op: "publish", Err: err}
	}

	publisher := publish.NewPublisher(m.config.SharedRoot, core.Username(), m.logger)
	target, err := publisher.Publish(manifest, projectDir)
	if err != nil {
		return "", &Error{Op: "publish", Package: manifest.Name, Err: err}
	}

	return target, nil
}

// resolve parses a raw reference and resolves it against the provider
// registry, returning the descriptor and the directory to copy from.
// Packages declaring an asset URL install from the download instead of
// the provider directory, signalled by an empty sourceDir.
func (m *Manager) resolve(rawRef string) (core.Reference, *core.Package, string, error) {
	ref, err := m.registry.ParseReference(rawRef)
	if err != nil {
		return core.Reference{}, nil, "", err
	}

	location, err := m.registry.ResolveLocation(ref)
	if err != nil {
		return ref, nil, "", err
	}

	pkg, err := m.registry.PackageInfoFromPath(location)
	if err != nil {
		return ref, nil, "", err
	}
	if pkg.Provider == "" {
		pkg.Provider = ref.Provider
	}

	sourceDir := location
	if pkg.URL != "" {
		sourceDir = ""
	}

	return ref, pkg, sourceDir, nil
}

// resolveRef resolves the current descriptor for an installed package:
// remote installs re-fetch their descriptor from the asset URL, local
// ones re-read the provider directory.
func (m *Manager) resolveRef(ctx context.Context, ref core.Reference, rec *database.Record) (*core.Package, string, error) {
	if isRemoteURL(rec.InstalledFrom) {
		pkg, err := m.fetcher.FetchPackageInfo(ctx, rec.InstalledFrom)
		if err != nil {
			return nil, "", err
		}
		if pkg.URL == "" {
			pkg.URL = rec.InstalledFrom
		}
		if pkg.Provider == "" {
			pkg.Provider = ref.Provider
		}
		return pkg, "", nil
	}

	_, pkg, sourceDir, err := m.resolve(ref.Key())
	return pkg, sourceDir, err
}

// parseInstalledReference parses a raw reference against the default
// provider; an unqualified name with no default still resolves when
// exactly one installed package carries it.
func (m *Manager) parseInstalledReference(rawRef string) (core.Reference, error) {
	ref, err := m.registry.ParseReference(rawRef)
	if err == nil {
		return ref, nil
	}
	if !strings.Contains(rawRef, ":") {
		if match, found := m.findInstalledByName(rawRef); found {
			return match, nil
		}
	}
	return core.Reference{}, err
}

// findInstalledByName returns the sole installed package with the
// given bare name, if there is exactly one.
func (m *Manager) findInstalledByName(name string) (core.Reference, bool) {
	records, err := m.db.All()
	if err != nil {
		return core.Reference{}, false
	}

	var match core.Reference
	var count int
	for _, rec := range records {
		if rec.Name == name {
			match = rec.Reference()
			count++
		}
	}

	return match, count == 1
}

func isRemoteURL(raw string) bool {
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}
