// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package model

// RingBackupVersion is the current schema version of RingBackup.
const RingBackupVersion = 1

// RingBackup is the export format of a single user's ring. Only the name and
// private key are kept; everything else is derived again on restore.
type RingBackup struct {
	SchemaVersion int               `json:"schema_version"`
	Username      string            `json:"username"`
	Keys          []RingBackupEntry `json:"keys"`
}

// RingBackupEntry is one exported key.
type RingBackupEntry struct {
	Name    string `json:"name"`
	Private string `json:"private"`
}
