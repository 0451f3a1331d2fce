package host

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/pses-launcher/pkg/bootstrap"
)

// diskSpaceMultiplier covers the archive plus its extracted copy.
const diskSpaceMultiplier = 4

// ErrInsufficientSpace is returned when the target file system cannot hold
// the download and its extraction.
var ErrInsufficientSpace = errors.New("💾 insufficient disk space")

// DownloadFile fetches req.URL into req.Path. The body is written to a
// temporary file in the same directory and renamed into place, so a
// partial download never appears at req.Path.
func (h *LocalHost) DownloadFile(req bootstrap.DownloadRequest) error {
	dir := filepath.Dir(req.Path)
	if err := os.MkdirAll(dir, bootstrap.DirPerms); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(h.ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	h.logger.Info("📥 Downloading", "url", req.URL)
	resp, err := h.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL)
	}

	if err := h.checkDiskSpace(dir, resp.ContentLength); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	body := &progressReader{r: resp.Body, total: resp.ContentLength, logger: h.logger}
	written, err := io.Copy(tmp, body)
	if err != nil {
		return fmt.Errorf("failed to write download: %w", err)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		return fmt.Errorf("short download: got %d of %d bytes", written, resp.ContentLength)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close download: %w", err)
	}

	if err := os.Rename(tmpPath, req.Path); err != nil {
		return fmt.Errorf("failed to finalize download: %w", err)
	}
	h.logger.Debug("✅ Download complete", "path", req.Path, "bytes", written)
	return nil
}

// checkDiskSpace fails when size is known and clearly does not fit. An
// unknown size or a failed free-space query only logs.
func (h *LocalHost) checkDiskSpace(dir string, size int64) error {
	if size <= 0 {
		return nil
	}
	available, err := availableDiskSpace(dir)
	if err != nil {
		h.logger.Warn("⚠️ Could not check disk space", "error", err)
		return nil
	}

	needed := uint64(size) * diskSpaceMultiplier
	h.logger.Debug("💾 Disk space check", "needed", needed, "available", available)
	if available < needed {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrInsufficientSpace, needed, available)
	}
	return nil
}

// progressReader logs download progress at every tenth of the total.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	step   int64
	logger hclog.Logger
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 {
		if step := p.read * 10 / p.total; step > p.step {
			p.step = step
			p.logger.Debug("⏳ Download progress", "percent", step*10, "bytes", p.read)
		}
	}
	return n, err
}
