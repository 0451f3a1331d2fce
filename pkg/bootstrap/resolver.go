// SPDX-License-Identifier: Apache-2.0
package bootstrap

import "strings"

// InstallTarget is the deterministic description of what to fetch and
// where it lands. It is recomputed on every run.
type InstallTarget struct {
	Version          string
	ArchiveFileName  string
	DownloadURL      string
	InstallDirectory string
}

// Resolver composes download URLs and install locations.
type Resolver struct {
	Version     string
	ReleaseHost string
}

// NewResolver returns a Resolver, falling back to the pinned version and
// the public release host for empty values.
func NewResolver(version, releaseHost string) Resolver {
	if version == "" {
		version = ServerVersion
	}
	if releaseHost == "" {
		releaseHost = DefaultReleaseHost
	}
	return Resolver{Version: version, ReleaseHost: releaseHost}
}

// Resolve builds the InstallTarget. The same archive serves every
// operating system.
func (r Resolver) Resolve(_ OS, paths *Paths) InstallTarget {
	return InstallTarget{
		Version:          r.Version,
		ArchiveFileName:  ArchiveFileName,
		DownloadURL:      r.DownloadURL(ArchiveFileName),
		InstallDirectory: paths.InstallDir(),
	}
}

// DownloadURL returns <release-host>/v<version>/<file>.
func (r Resolver) DownloadURL(fileName string) string {
	tag := r.Version
	if !strings.HasPrefix(tag, "v") {
		tag = "v" + tag
	}
	return strings.TrimRight(r.ReleaseHost, "/") + "/" + tag + "/" + fileName
}
