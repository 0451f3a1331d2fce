// SPDX-License-Identifier: Apache-2.0
package bootstrap

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/klauspost/compress/zip"
)

// ExtractReport summarizes one extraction pass.
type ExtractReport struct {
	Files   int
	Dirs    int
	Skipped int
}

// ArchiveInstaller materializes a downloaded server archive into the
// install directory.
type ArchiveInstaller struct {
	host   Host
	logger hclog.Logger
}

// NewArchiveInstaller creates an ArchiveInstaller.
func NewArchiveInstaller(host Host, logger hclog.Logger) *ArchiveInstaller {
	return &ArchiveInstaller{host: host, logger: logger}
}

// Install extracts archivePath into the install directory, requests the
// executable fix-up and removes the archive.
//
// Entries are written to a staging directory that is renamed onto the
// install directory only once every entry succeeded, so a failed
// extraction never leaves a directory that later runs would trust.
func (a *ArchiveInstaller) Install(archivePath string, paths *Paths) (ExtractReport, error) {
	staging := paths.StagingDir()
	installDir := paths.InstallDir()

	if err := os.RemoveAll(staging); err != nil {
		return ExtractReport{}, fmt.Errorf("%w: failed to clear staging directory: %v", ErrExtractionFailed, err)
	}

	a.logger.Info("📦 Extracting server archive", "archive", archivePath, "dest", installDir)
	report, err := a.extract(archivePath, staging)
	if err != nil {
		a.discardStaging(staging)
		return report, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	if err := os.Rename(staging, installDir); err != nil {
		a.discardStaging(staging)
		return report, fmt.Errorf("%w: failed to move staging directory into place: %v", ErrExtractionFailed, err)
	}
	a.logger.Debug("✅ Extraction complete", "files", report.Files, "dirs", report.Dirs, "skipped", report.Skipped)

	if err := a.host.MakeFileExecutable(ExecutableRequest{Path: installDir}); err != nil {
		a.logger.Warn("⚠️ Failed to mark server executable", "path", installDir, "error", err)
	}

	if err := a.host.RemoveFile(RemoveRequest{Path: archivePath}); err != nil {
		a.logger.Debug("⚠️ Failed to remove archive", "path", archivePath, "error", err)
	}

	return report, nil
}

func (a *ArchiveInstaller) discardStaging(staging string) {
	if err := os.RemoveAll(staging); err != nil {
		a.logger.Debug("⚠️ Failed to remove staging directory", "path", staging, "error", err)
	}
}

// extract writes every safe entry of the zip at archivePath below dest.
func (a *ArchiveInstaller) extract(archivePath, dest string) (ExtractReport, error) {
	var report ExtractReport

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return report, fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	if err := os.MkdirAll(dest, DirPerms); err != nil {
		return report, fmt.Errorf("failed to create %s: %w", dest, err)
	}

	for _, f := range r.File {
		rel, ok := SafeEntryPath(f.Name)
		if !ok || f.Mode()&os.ModeSymlink != 0 {
			a.logger.Warn("⚠️ Skipping unsafe archive entry", "name", f.Name)
			report.Skipped++
			continue
		}

		target := filepath.Join(dest, filepath.FromSlash(rel))
		if err := ensureWithinRoot(dest, target); err != nil {
			a.logger.Warn("⚠️ Skipping archive entry outside install root", "name", f.Name)
			report.Skipped++
			continue
		}

		if isDirEntry(f.Name) {
			if err := os.MkdirAll(target, DirPerms); err != nil {
				return report, fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			report.Dirs++
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), DirPerms); err != nil {
			return report, fmt.Errorf("failed to create directory for %s: %w", target, err)
		}
		if err := writeEntry(f, target); err != nil {
			return report, err
		}
		a.logger.Trace("📝 Wrote entry", "path", target, "size", f.UncompressedSize64)
		report.Files++
	}

	return report, nil
}

// writeEntry copies one file entry to target, replacing any existing file.
func writeEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	perm := f.Mode().Perm() | 0o600
	if f.Mode().Perm() == 0 {
		perm = FilePerms
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}

	n, err := io.Copy(out, io.LimitReader(rc, MaxEntrySize+1))
	if err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	if n > MaxEntrySize {
		out.Close()
		return fmt.Errorf("entry %s exceeds %d bytes", f.Name, int64(MaxEntrySize))
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", target, err)
	}
	return nil
}

// SafeEntryPath converts an archive entry name to a clean relative
// slash-separated path. It reports false for names that are absolute,
// carry a drive letter, or climb out of the extraction root.
func SafeEntryPath(name string) (string, bool) {
	name = strings.ReplaceAll(name, `\`, "/")
	if name == "" || strings.HasPrefix(name, "/") {
		return "", false
	}
	if len(name) >= 2 && name[1] == ':' {
		return "", false
	}

	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return clean, true
}

func isDirEntry(name string) bool {
	return strings.HasSuffix(strings.ReplaceAll(name, `\`, "/"), "/")
}

func ensureWithinRoot(root, target string) error {
	root = filepath.Clean(root)
	target = filepath.Clean(target)
	if target == root {
		return nil
	}
	if !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return fmt.Errorf("illegal path %s", target)
	}
	return nil
}
