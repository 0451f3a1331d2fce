// SPDX-License-Identifier: Apache-2.0
package bootstrap

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provide-io/pses-launcher/internal/installroot"
)

func payload(arch, os string, options string) []byte {
	cfg := map[string]any{"languageId": "powershell"}
	if options != "" {
		cfg["options"] = json.RawMessage(options)
	}
	data, _ := json.Marshal(map[string]any{"arch": arch, "os": os, "configuration": cfg})
	return data
}

func testSettings(t *testing.T) Settings {
	t.Helper()
	return Settings{
		Root:        t.TempDir(),
		TempDir:     t.TempDir(),
		LockTimeout: time.Second,
		Clock:       fixedClock,
	}
}

func TestInitialize_LinuxFreshInstall(t *testing.T) {
	host := newFakeHost(serverZip(t))
	settings := testSettings(t)

	require.NoError(t, Initialize(payload("x86_64", "linux", ""), host, testLogger(), settings))

	// download -> one archive named PowerShellEditorServices.zip under root
	require.Equal(t, 1, host.count(opDownload))
	assert.Equal(t, filepath.Join(settings.Root, "PowerShellEditorServices.zip"), host.paths(opDownload)[0])
	assert.Equal(t,
		"https://github.com/PowerShell/PowerShellEditorServices/releases/download/v3.4.4/PowerShellEditorServices.zip",
		host.calls[1].URL)

	assert.Equal(t, 1, host.count(opExecutable))
	assert.Equal(t, []string{filepath.Join(settings.Root, "PSEditorServices")}, host.paths(opExecutable))
	assert.DirExists(t, filepath.Join(settings.Root, "PSEditorServices"))
	assert.NoFileExists(t, filepath.Join(settings.Root, "download.lock"))

	require.Len(t, host.plans, 1)
	plan := host.plans[0]
	assert.Equal(t, "pwsh", plan.Executable())
	assert.DirExists(t, plan.Session().Directory)
	assert.Equal(t, opStart, host.ops()[len(host.ops())-1])
}

func TestInitialize_WindowsUsesPowershellExe(t *testing.T) {
	host := newFakeHost(serverZip(t))
	require.NoError(t, Initialize(payload("x86_64", "windows", ""), host, testLogger(), testSettings(t)))

	require.Len(t, host.plans, 1)
	assert.Equal(t, "powershell.exe", host.plans[0].Executable())
}

func TestInitialize_UnsupportedArchIsSilent(t *testing.T) {
	for _, arch := range []string{"aarch64", "arm64", "i686"} {
		t.Run(arch, func(t *testing.T) {
			host := newFakeHost(serverZip(t))
			settings := testSettings(t)

			err := Initialize(payload(arch, "linux", ""), host, testLogger(), settings)
			assert.ErrorIs(t, err, ErrUnsupportedPlatform)
			assert.Empty(t, host.ops())

			entries, err := os.ReadDir(settings.Root)
			require.NoError(t, err)
			assert.Empty(t, entries)
			entries, err = os.ReadDir(settings.TempDir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestInitialize_InvalidPayload(t *testing.T) {
	host := newFakeHost(nil)
	err := Initialize([]byte("{"), host, testLogger(), testSettings(t))
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Empty(t, host.ops())
}

func TestRun_ExistingInstallSkipsDownload(t *testing.T) {
	host := newFakeHost(nil)
	settings := testSettings(t)
	require.NoError(t, os.MkdirAll(filepath.Join(settings.Root, InstallDirName), 0o755))

	info, err := DecodePluginInfo(payload("x86_64", "linux", ""))
	require.NoError(t, err)
	plan, err := New(host, testLogger(), settings).Run(info)
	require.NoError(t, err)
	require.NotNil(t, plan)

	assert.Equal(t, []string{opLock, opRemove, opStart}, host.ops())
	assert.Equal(t, []string{filepath.Join(settings.Root, LockFileName)}, host.paths(opRemove))
	assert.NoFileExists(t, filepath.Join(settings.Root, LockFileName))
}

func TestRun_DownloadFailureDoesNotStart(t *testing.T) {
	host := newFakeHost(nil)
	host.downloadErr = assert.AnError
	settings := testSettings(t)

	info, err := DecodePluginInfo(payload("x86_64", "linux", ""))
	require.NoError(t, err)
	plan, err := New(host, testLogger(), settings).Run(info)
	assert.ErrorIs(t, err, ErrDownloadFailed)
	assert.Nil(t, plan)
	assert.Zero(t, host.count(opStart))
	assert.NoFileExists(t, filepath.Join(settings.Root, LockFileName))
}

func TestRun_StartFailureIsReported(t *testing.T) {
	host := newFakeHost(nil)
	host.startErr = assert.AnError
	settings := testSettings(t)
	require.NoError(t, os.MkdirAll(filepath.Join(settings.Root, InstallDirName), 0o755))

	info, err := DecodePluginInfo(payload("x86_64", "linux", ""))
	require.NoError(t, err)
	plan, err := New(host, testLogger(), settings).Run(info)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NotNil(t, plan)
	assert.Equal(t, 1, host.count(opStart))
}

func TestRun_OptionsReachTheHost(t *testing.T) {
	host := newFakeHost(nil)
	settings := testSettings(t)
	require.NoError(t, os.MkdirAll(filepath.Join(settings.Root, InstallDirName), 0o755))

	info, err := DecodePluginInfo(payload("x86_64", "linux", `{"binary":{"args":"-NoLogo -Stdio"},"theme":"dark"}`))
	require.NoError(t, err)
	_, err = New(host, testLogger(), settings).Run(info)
	require.NoError(t, err)

	require.Len(t, host.plans, 1)
	assert.Equal(t, []string{"-NoLogo", "-Stdio"}, host.plans[0].Arguments())
	assert.JSONEq(t, `{"binary":{"args":["-NoLogo","-Stdio"]},"theme":"dark"}`, string(host.plans[0].Options().Raw()))
}

func TestRun_DistinctSessionsAcrossRuns(t *testing.T) {
	host := newFakeHost(nil)
	settings := testSettings(t)
	settings.Clock = stepClock(fixedNow, time.Second)
	require.NoError(t, os.MkdirAll(filepath.Join(settings.Root, InstallDirName), 0o755))

	info, err := DecodePluginInfo(payload("x86_64", "linux", ""))
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := New(host, testLogger(), settings).Run(info)
		require.NoError(t, err)
	}

	require.Len(t, host.plans, 2)
	assert.NotEqual(t, host.plans[0].Session().Directory, host.plans[1].Session().Directory)
}

func TestInstall(t *testing.T) {
	host := newFakeHost(serverZip(t))
	settings := testSettings(t)
	b := New(host, testLogger(), settings)

	report, err := b.Install(NewPlatformInfo("x86_64", "linux"))
	require.NoError(t, err)
	assert.Equal(t, StateInstalled, report.Final())
	assert.Zero(t, host.count(opStart))

	rec, err := installroot.ReadRecord(filepath.Join(settings.Root, "PSEditorServices"))
	require.NoError(t, err)
	assert.True(t, fixedNow.Equal(rec.InstalledAt), "installed_at %v", rec.InstalledAt)

	report, err = b.Install(NewPlatformInfo("x86_64", "linux"))
	require.NoError(t, err)
	assert.True(t, report.FastPath)
	assert.Equal(t, 1, host.count(opDownload))

	_, err = b.Install(NewPlatformInfo("aarch64", "linux"))
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestBootstrap_DefaultRootIsWorkingDirectory(t *testing.T) {
	wd := t.TempDir()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(wd))
	t.Cleanup(func() { _ = os.Chdir(prev) })

	paths, err := New(nil, nil, Settings{}).Paths()
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(paths.Root())
	require.NoError(t, err)
	expected, err := filepath.EvalSymlinks(wd)
	require.NoError(t, err)
	assert.Equal(t, expected, resolved)
}
