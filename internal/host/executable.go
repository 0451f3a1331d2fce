package host

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/provide-io/pses-launcher/pkg/bootstrap"
	"github.com/provide-io/pses-launcher/pkg/utils/permissions"
)

// MakeFileExecutable adds execute bits to req.Path. A directory is walked
// and every regular file and directory below it is updated.
func (h *LocalHost) MakeFileExecutable(req bootstrap.ExecutableRequest) error {
	count := 0
	err := filepath.WalkDir(req.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		mode := info.Mode()
		next := permissions.WithExecute(mode)
		if next == mode {
			return nil
		}
		if err := os.Chmod(path, next.Perm()); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to make %s executable: %w", req.Path, err)
	}
	h.logger.Debug("🔧 Marked executable", "path", req.Path, "changed", count)
	return nil
}
