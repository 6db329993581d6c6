// Package source loads datastandards.
//
// A location is either an http(s) URL of an upstream service, "-" for
// standard input, or a file path. Documents are JSON unless the file
// extension or the response content type says YAML. Every load produces a
// model.Snapshot that records where the document came from and a SHA3-256
// digest of its raw bytes, so report history can tell whether two runs read
// the same data.
package source
