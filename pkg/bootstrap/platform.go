// SPDX-License-Identifier: Apache-2.0
package bootstrap

import (
	"runtime"
)

// Arch is a normalized CPU architecture identifier.
type Arch string

const (
	ArchX86_64  Arch = "x86_64"
	ArchAarch64 Arch = "aarch64"
	ArchOther   Arch = "other"
)

// OS is a normalized operating system identifier.
type OS string

const (
	OSWindows OS = "windows"
	OSMacOS   OS = "macos"
	OSLinux   OS = "linux"
	OSOther   OS = "other"
)

// PlatformInfo describes the platform the editor host reported.
type PlatformInfo struct {
	Arch Arch
	OS   OS
}

// ParseArch maps a host-reported architecture string onto Arch. Matching
// is exact: "X86_64" or " x86_64" is ArchOther.
func ParseArch(s string) Arch {
	switch s {
	case "x86_64":
		return ArchX86_64
	case "aarch64", "arm64":
		return ArchAarch64
	default:
		return ArchOther
	}
}

// ParseOS maps a host-reported operating system string onto OS. Matching
// is exact.
func ParseOS(s string) OS {
	switch s {
	case "windows":
		return OSWindows
	case "macos", "darwin":
		return OSMacOS
	case "linux":
		return OSLinux
	default:
		return OSOther
	}
}

// NewPlatformInfo parses raw arch/os strings.
func NewPlatformInfo(arch, os string) PlatformInfo {
	return PlatformInfo{Arch: ParseArch(arch), OS: ParseOS(os)}
}

// Supported reports whether a server distribution exists for this platform.
// Only x86_64 builds are published.
func (p PlatformInfo) Supported() bool {
	return p.Arch == ArchX86_64
}

// CurrentPlatform returns the platform of the running process using the
// same identifiers an editor host reports.
func CurrentPlatform() PlatformInfo {
	arch := runtime.GOARCH
	switch arch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	}
	return NewPlatformInfo(arch, runtime.GOOS)
}
