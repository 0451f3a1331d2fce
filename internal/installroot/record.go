package installroot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RecordFile is the name of the install record inside an install directory.
const RecordFile = ".pses-install.json"

// Record describes a completed install. It is informational: whether a
// server is installed is decided by the directory alone.
type Record struct {
	Version     string    `json:"version"`
	DownloadURL string    `json:"download_url"`
	InstalledAt time.Time `json:"installed_at"`
	Files       int       `json:"files"`
	Skipped     int       `json:"skipped"`
}

// WriteRecord stores rec in installDir.
func WriteRecord(installDir string, rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(installDir, RecordFile), data, 0o644)
}

// ReadRecord loads the record from installDir. A missing record returns
// an error satisfying errors.Is(err, os.ErrNotExist).
func ReadRecord(installDir string) (Record, error) {
	var rec Record
	data, err := os.ReadFile(filepath.Join(installDir, RecordFile))
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("invalid install record: %w", err)
	}
	return rec, nil
}
