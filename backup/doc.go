// Package backup makes point-in-time copies of store and segment files.
//
// Local backups are compressed based on file extension (.zst, .br, .gz)
// and written atomically. Copies can be uploaded to S3-compatible storage
// or to a server over sftp.
//
// Sealed segments can be backed up automatically:
//
//	m := &segments.Manager{
//		Dir:     "data",
//		DidRoll: backup.DidRollToDir("backups", ".zst"),
//	}
package backup
