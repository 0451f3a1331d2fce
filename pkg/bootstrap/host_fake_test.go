// SPDX-License-Identifier: Apache-2.0
package bootstrap

import (
	"bytes"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

const (
	opLock       = "lock"
	opDownload   = "download"
	opExecutable = "executable"
	opRemove     = "remove"
	opStart      = "start"
)

type hostCall struct {
	Op   string
	Path string
	URL  string
}

// fakeHost records every request and performs the file system part of
// lock, download and remove so the coordinator sees real files.
type fakeHost struct {
	mu    sync.Mutex
	calls []hostCall
	plans []LaunchPlan

	archive       []byte
	skipWrite     bool
	downloadErr   error
	executableErr error
	startErr      error
	lockErrs      []error
}

func newFakeHost(archive []byte) *fakeHost {
	return &fakeHost{archive: archive}
}

func (h *fakeHost) record(c hostCall) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, c)
}

func (h *fakeHost) LockFile(req LockRequest) error {
	h.record(hostCall{Op: opLock, Path: req.Path})

	h.mu.Lock()
	if len(h.lockErrs) > 0 {
		err := h.lockErrs[0]
		h.lockErrs = h.lockErrs[1:]
		h.mu.Unlock()
		if err != nil {
			return err
		}
	} else {
		h.mu.Unlock()
	}

	f, err := os.OpenFile(req.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrLockHeld
		}
		return err
	}
	return f.Close()
}

func (h *fakeHost) DownloadFile(req DownloadRequest) error {
	h.record(hostCall{Op: opDownload, Path: req.Path, URL: req.URL})
	if h.downloadErr != nil {
		return h.downloadErr
	}
	if h.skipWrite {
		return nil
	}
	return os.WriteFile(req.Path, h.archive, 0o644)
}

func (h *fakeHost) MakeFileExecutable(req ExecutableRequest) error {
	h.record(hostCall{Op: opExecutable, Path: req.Path})
	return h.executableErr
}

func (h *fakeHost) RemoveFile(req RemoveRequest) error {
	h.record(hostCall{Op: opRemove, Path: req.Path})
	if err := os.Remove(req.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (h *fakeHost) StartLSP(plan LaunchPlan) error {
	h.record(hostCall{Op: opStart})
	h.mu.Lock()
	h.plans = append(h.plans, plan)
	h.mu.Unlock()
	return h.startErr
}

func (h *fakeHost) count(op string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (h *fakeHost) ops() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.calls))
	for i, c := range h.calls {
		out[i] = c.Op
	}
	return out
}

func (h *fakeHost) paths(op string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, c := range h.calls {
		if c.Op == op {
			out = append(out, c.Path)
		}
	}
	return out
}

type zipEntry struct {
	Name    string
	Body    string
	Mode    os.FileMode
	Symlink bool
}

// buildZip returns an in-memory zip with entries in order. Names ending in
// "/" become directory entries.
func buildZip(t *testing.T, entries []zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		hdr.Modified = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		switch {
		case e.Symlink:
			hdr.SetMode(os.ModeSymlink | 0o777)
		case e.Mode != 0:
			hdr.SetMode(e.Mode)
		}
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		if e.Body != "" {
			_, err = w.Write([]byte(e.Body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// serverZip mimics the published PowerShellEditorServices.zip layout.
func serverZip(t *testing.T) []byte {
	return buildZip(t, []zipEntry{
		{Name: "PowerShellEditorServices/"},
		{Name: "PowerShellEditorServices/Start-EditorServices.ps1", Body: "param()\n"},
		{Name: "PowerShellEditorServices/bin/Common/Microsoft.PowerShell.EditorServices.dll", Body: "MZ"},
		{Name: "PSReadLine/PSReadLine.psd1", Body: "@{}"},
	})
}

func testLogger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "bootstrap-test",
		Level:  hclog.Trace,
		Output: os.Stderr,
	})
}

// stepClock returns a clock that advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := now
		now = now.Add(step)
		return t
	}
}
