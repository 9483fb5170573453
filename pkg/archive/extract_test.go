// pkg/archive/extract_test.go
package archive

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	name     string
	body     string
	typeflag byte
	linkname string
	mode     int64
}

func buildTar(t *testing.T, entries []entry) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		mode := e.mode
		if mode == 0 {
			mode = 0644
		}
		hdr := &tar.Header{
			Name:     e.name,
			Mode:     mode,
			Typeflag: e.typeflag,
			Linkname: e.linkname,
			Size:     int64(len(e.body)),
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if e.typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	return &buf
}

func writeTarGz(t *testing.T, path string, entries []entry) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	_, err = gz.Write(buildTar(t, entries).Bytes())
	require.NoError(t, err)
	require.NoError(t, gz.Close())
}

func defaultEntries() []entry {
	return []entry{
		{name: "eza-0.18.0/", typeflag: tar.TypeDir},
		{name: "eza-0.18.0/bin/", typeflag: tar.TypeDir},
		{name: "eza-0.18.0/bin/eza", body: "#!/bin/sh\necho eza", typeflag: tar.TypeReg, mode: 0755},
		{name: "eza-0.18.0/README.md", body: "docs", typeflag: tar.TypeReg},
		{name: "eza-0.18.0/bin/alias", typeflag: tar.TypeSymlink, linkname: "eza"},
	}
}

func TestExtractTarGzStripsLeadingComponent(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "eza.tar.gz")
	writeTarGz(t, archivePath, defaultEntries())

	dest := t.TempDir()
	require.NoError(t, Extract(archivePath, dest))

	// The top-level eza-0.18.0/ component is gone.
	data, err := os.ReadFile(filepath.Join(dest, "bin", "eza"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "echo eza")

	assert.FileExists(t, filepath.Join(dest, "README.md"))

	target, err := os.Readlink(filepath.Join(dest, "bin", "alias"))
	require.NoError(t, err)
	assert.Equal(t, "eza", target)

	info, err := os.Stat(filepath.Join(dest, "bin", "eza"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}

func TestExtractPlainTar(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "pkg.tar")
	require.NoError(t, os.WriteFile(archivePath, buildTar(t, defaultEntries()).Bytes(), 0644))

	dest := t.TempDir()
	require.NoError(t, Extract(archivePath, dest))
	assert.FileExists(t, filepath.Join(dest, "bin", "eza"))
}

func TestExtractTarZst(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "pkg.tar.zst")

	f, err := os.Create(archivePath)
	require.NoError(t, err)
	zw, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = zw.Write(buildTar(t, defaultEntries()).Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	dest := t.TempDir()
	require.NoError(t, Extract(archivePath, dest))
	assert.FileExists(t, filepath.Join(dest, "README.md"))
}

func TestExtractRejectsPathTraversal(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "evil.tar.gz")
	writeTarGz(t, archivePath, []entry{
		{name: "pkg/../../escape", body: "boom", typeflag: tar.TypeReg},
	})

	err := Extract(archivePath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")
}

func TestExtractRejectsUnknownFormat(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "pkg.rar")
	require.NoError(t, os.WriteFile(archivePath, []byte("junk"), 0644))

	err := Extract(archivePath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported archive format")
}

func TestExtractEmptyArchiveFails(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "empty.tar.gz")
	writeTarGz(t, archivePath, []entry{
		{name: "pkg/", typeflag: tar.TypeDir},
	})

	err := Extract(archivePath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files")
}
