// SPDX-License-Identifier: Apache-2.0
package bootstrap

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	binaryArgsPath = "binary.args"
	binaryPathPath = "binary.path"
)

// PluginInfo is the initialization payload sent by the editor host.
type PluginInfo struct {
	Arch          string        `json:"arch"`
	OS            string        `json:"os"`
	Configuration Configuration `json:"configuration"`
}

// Configuration carries the language id and the user's server options.
type Configuration struct {
	LanguageID string          `json:"languageId"`
	Options    json.RawMessage `json:"options,omitempty"`
}

// DecodePluginInfo parses an initialization payload. The snake_case
// language_id key is accepted as well.
func DecodePluginInfo(payload []byte) (PluginInfo, error) {
	var info PluginInfo
	if !gjson.ValidBytes(payload) {
		return info, fmt.Errorf("%w: malformed JSON", ErrInvalidPayload)
	}
	if err := json.Unmarshal(payload, &info); err != nil {
		return info, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if info.Configuration.LanguageID == "" {
		info.Configuration.LanguageID = gjson.GetBytes(payload, "configuration.language_id").String()
	}
	return info, nil
}

// Platform returns the parsed platform of the payload.
func (p PluginInfo) Platform() PlatformInfo {
	return NewPlatformInfo(p.Arch, p.OS)
}

// ServerOptions is a typed view over the optional options payload.
//
// Defaults: a missing, empty or non-string binary.args means "use the
// built-in argument vector"; the same holds for binary.path and the
// platform executable.
type ServerOptions struct {
	raw json.RawMessage

	// BinaryArgs replaces the default argument vector when non-empty.
	BinaryArgs string
	// BinaryPath replaces the platform executable when non-empty.
	BinaryPath string
}

// ReadServerOptions extracts the overrides from raw options JSON. It never
// fails: anything it cannot interpret is treated as absent.
func ReadServerOptions(raw json.RawMessage) ServerOptions {
	var opts ServerOptions
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || !gjson.ValidBytes(trimmed) {
		return opts
	}
	opts.raw = append(json.RawMessage(nil), trimmed...)

	if v := gjson.GetBytes(trimmed, binaryArgsPath); v.Type == gjson.String && v.Str != "" {
		opts.BinaryArgs = v.Str
	}
	if v := gjson.GetBytes(trimmed, binaryPathPath); v.Type == gjson.String && v.Str != "" {
		opts.BinaryPath = v.Str
	}
	return opts
}

// Raw returns a copy of the options JSON, or nil when none was supplied.
func (o ServerOptions) Raw() json.RawMessage {
	if o.raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), o.raw...)
}

// HasArgsOverride reports whether the user supplied binary.args.
func (o ServerOptions) HasArgsOverride() bool {
	return o.BinaryArgs != ""
}

// withArguments records the final argument vector under binary.args so the
// host sees what was actually launched. Options without an args override
// are forwarded untouched.
func (o ServerOptions) withArguments(args []string) (ServerOptions, error) {
	if !o.HasArgsOverride() || o.raw == nil {
		return o, nil
	}
	updated, err := sjson.SetBytes(o.Raw(), binaryArgsPath, args)
	if err != nil {
		return o, fmt.Errorf("failed to update %s: %w", binaryArgsPath, err)
	}
	o.raw = updated
	return o, nil
}
