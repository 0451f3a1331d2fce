// SPDX-License-Identifier: Apache-2.0
package bootstrap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestDecodePluginInfo(t *testing.T) {
	payload := []byte(`{"arch":"x86_64","os":"linux","configuration":{"languageId":"powershell","options":{"binary":{"args":"-NoLogo"}}}}`)

	info, err := DecodePluginInfo(payload)
	require.NoError(t, err)
	assert.Equal(t, "x86_64", info.Arch)
	assert.Equal(t, "linux", info.OS)
	assert.Equal(t, "powershell", info.Configuration.LanguageID)
	assert.JSONEq(t, `{"binary":{"args":"-NoLogo"}}`, string(info.Configuration.Options))
	assert.Equal(t, PlatformInfo{Arch: ArchX86_64, OS: OSLinux}, info.Platform())
}

func TestDecodePluginInfo_SnakeCaseLanguageID(t *testing.T) {
	info, err := DecodePluginInfo([]byte(`{"arch":"x86_64","os":"windows","configuration":{"language_id":"powershell"}}`))
	require.NoError(t, err)
	assert.Equal(t, "powershell", info.Configuration.LanguageID)
	assert.Nil(t, info.Configuration.Options)
}

func TestDecodePluginInfo_Invalid(t *testing.T) {
	for _, payload := range []string{"", "{", `{"arch": 5}`, "[]"} {
		_, err := DecodePluginInfo([]byte(payload))
		assert.ErrorIs(t, err, ErrInvalidPayload, "payload %q", payload)
	}
}

func TestReadServerOptions(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantArgs string
		wantPath string
		override bool
	}{
		{"absent", "", "", "", false},
		{"null", "null", "", "", false},
		{"invalid json", "{binary", "", "", false},
		{"no binary", `{"other":1}`, "", "", false},
		{"empty args", `{"binary":{"args":""}}`, "", "", false},
		{"non-string args", `{"binary":{"args":["-NoLogo"]}}`, "", "", false},
		{"args", `{"binary":{"args":"-NoLogo -Stdio"}}`, "-NoLogo -Stdio", "", true},
		{"path", `{"binary":{"path":"/opt/pwsh/pwsh"}}`, "", "/opt/pwsh/pwsh", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := ReadServerOptions(json.RawMessage(tt.raw))
			assert.Equal(t, tt.wantArgs, opts.BinaryArgs)
			assert.Equal(t, tt.wantPath, opts.BinaryPath)
			assert.Equal(t, tt.override, opts.HasArgsOverride())
		})
	}
}

func TestServerOptions_RawIsCopy(t *testing.T) {
	opts := ReadServerOptions(json.RawMessage(` {"a":1} `))
	raw := opts.Raw()
	require.Equal(t, `{"a":1}`, string(raw))

	raw[1] = 'X'
	assert.Equal(t, `{"a":1}`, string(opts.Raw()))
	assert.Nil(t, ReadServerOptions(nil).Raw())
}

func TestServerOptions_WithArguments(t *testing.T) {
	opts := ReadServerOptions(json.RawMessage(`{"binary":{"args":"-Stdio","path":"pwsh"},"keep":true}`))

	updated, err := opts.withArguments([]string{"-Stdio", "-LogLevel", "Normal"})
	require.NoError(t, err)

	raw := updated.Raw()
	assert.Equal(t, []string{"-Stdio", "-LogLevel", "Normal"}, stringsOf(gjson.GetBytes(raw, "binary.args").Array()))
	assert.Equal(t, "pwsh", gjson.GetBytes(raw, "binary.path").String())
	assert.True(t, gjson.GetBytes(raw, "keep").Bool())

	// The input is untouched.
	assert.Equal(t, "-Stdio", gjson.GetBytes(opts.Raw(), "binary.args").String())
}

func TestServerOptions_WithArgumentsNoOverride(t *testing.T) {
	opts := ReadServerOptions(json.RawMessage(`{"keep":true}`))
	updated, err := opts.withArguments([]string{"-Stdio"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"keep":true}`, string(updated.Raw()))
}

func stringsOf(results []gjson.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.String()
	}
	return out
}
