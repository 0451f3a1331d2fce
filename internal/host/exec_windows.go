//go:build windows

package host

// execServer falls back to spawn mode; Windows cannot replace a process
// image in place.
func (h *LocalHost) execServer(executable string, args []string) error {
	h.logger.Debug("⚠️ exec mode unsupported on windows, spawning instead")
	return h.spawnServer(executable, args)
}
