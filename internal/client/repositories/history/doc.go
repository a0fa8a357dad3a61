// Package history provides the client-side journal of confirmed uploads.
//
// The Repository interface records every media record the server has
// acknowledged (including dedup hits) so the REPL can show past uploads
// offline. The SQLite implementation persists through a dbx.DBTX, which
// is satisfied by both *sql.DB and *sql.Tx.
package history
