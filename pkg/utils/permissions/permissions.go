// Package permissions provides helpers for file mode handling of installed
// server files.
package permissions

import (
	"io/fs"
)

// Default permission constants
const (
	DefaultFilePerms fs.FileMode = 0o644
	DefaultDirPerms  fs.FileMode = 0o755
)

// WithExecute adds the execute bit to every class that can already read.
func WithExecute(perm fs.FileMode) fs.FileMode {
	p := perm.Perm()
	if p&0o400 != 0 {
		p |= 0o100
	}
	if p&0o040 != 0 {
		p |= 0o010
	}
	if p&0o004 != 0 {
		p |= 0o001
	}
	return (perm &^ fs.ModePerm) | p
}
