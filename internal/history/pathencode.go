// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package history

import "strings"

// encodeProjectPath mirrors the CLI's convention for naming a
// project's storage directory: every "/" in the absolute path becomes
// "-". Used only to build fixtures in tests; the reader never needs to
// construct this path itself, it enumerates whatever directories exist.
func encodeProjectPath(projectPath string) string {
	return strings.ReplaceAll(projectPath, "/", "-")
}

// decodeProjectDir reverses encodeProjectPath on a best-effort basis.
// The encoding is lossy: a literal "-" in a path segment is
// indistinguishable from an encoded "/". Callers must treat the result
// as a display hint only — the authoritative project path for a
// session is the `cwd` field recorded on its messages, never this
// decoding.
func decodeProjectDir(dirName string) string {
	if dirName == "" {
		return ""
	}
	decoded := strings.ReplaceAll(dirName, "-", "/")
	if !strings.HasPrefix(decoded, "/") {
		decoded = "/" + decoded
	}
	return decoded
}
