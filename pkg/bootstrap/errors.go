// SPDX-License-Identifier: Apache-2.0
package bootstrap

import "errors"

var (
	// Platform errors 🖥️
	ErrUnsupportedPlatform = errors.New("❌ unsupported platform")

	// Payload errors 📨
	ErrInvalidPayload = errors.New("❌ invalid initialization payload")

	// Install errors 📦
	ErrDownloadFailed   = errors.New("❌ server archive download failed")
	ErrExtractionFailed = errors.New("❌ server archive extraction failed")

	// Lock errors 🔒
	ErrLockHeld    = errors.New("🔒 install lock held by another process")
	ErrLockTimeout = errors.New("⏳ timed out waiting for install lock")

	// Launch errors 🚀
	ErrEmptyCommand = errors.New("❌ empty launch command")
)
