// SPDX-License-Identifier: Apache-2.0
package bootstrap

import (
	"time"

	"github.com/provide-io/pses-launcher/pkg/utils/permissions"
)

// =================================
// Release defaults
// =================================
const (
	ServerVersion      = "3.4.4"
	DefaultReleaseHost = "https://github.com/PowerShell/PowerShellEditorServices/releases/download"
	ArchiveFileName    = "PowerShellEditorServices.zip"
)

// =================================
// Path constants
// =================================
const (
	InstallDirName     = "PSEditorServices"
	LockFileName       = "download.lock"
	StagingSuffix      = ".partial"
	SessionDirPrefix   = "pses-"
	SessionLogFile     = "logs.log"
	SessionDetailsFile = "session.json"
	StartScriptRelPath = "PowerShellEditorServices/Start-EditorServices.ps1"
)

// =================================
// Launch defaults
// =================================
const (
	DefaultHostName       = "pses-launcher"
	DefaultHostVersion    = "1.0.0"
	DefaultServerLogLevel = "Normal"
	TransportName         = "pwsh"
	WindowsExecutable     = "powershell.exe"
	DefaultExecutable     = "pwsh"
)

// =================================
// File permissions and limits
// =================================
const (
	DirPerms        = permissions.DefaultDirPerms
	FilePerms       = permissions.DefaultFilePerms
	MaxEntrySize    = 1 << 30 // 1 GiB per archive entry
	LockPollEvery   = 100 * time.Millisecond
	DefaultLockWait = 60 * time.Second
)
