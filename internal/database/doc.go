// Package database provides SQLite-based storage for report history.
//
// Every generated report run is stored with the category it was built for,
// the source and digest of the datastandard it read, its rows and its error
// message. The history command compares consecutive runs of a category to
// show how the applicable attributes changed between datastandard releases.
//
// The database is a single file opened through modernc.org/sqlite, a CGO-free
// driver, in WAL mode with one connection.
package database
