// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package sessioninfo

import "time"

// migrate brings doc forward to CurrentSchemaVersion in place. It is
// idempotent and always rewrites every entry to the same target
// version in a single pass so readers never observe mixed-version
// entries.
func migrate(doc *document) bool {
	if doc.Metadata.SchemaVersion >= CurrentSchemaVersion {
		return false
	}

	from := doc.Metadata.SchemaVersion
	if from == 0 {
		from = 1
	}

	for v := from; v < CurrentSchemaVersion; v++ {
		switch v {
		case 1:
			for id, entry := range doc.Sessions {
				entry.Version = 2
				doc.Sessions[id] = entry
			}
		case 2:
			for id, entry := range doc.Sessions {
				if entry.PermissionMode == "" {
					entry.PermissionMode = PermissionModeDefault
				}
				entry.Version = 3
				doc.Sessions[id] = entry
			}
		}
	}

	doc.Metadata.SchemaVersion = CurrentSchemaVersion
	doc.Metadata.LastUpdated = time.Now()
	return true
}
