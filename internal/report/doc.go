// Package report renders report runs.
//
// This package contains writers for different output formats:
//   - TextWriter: aligned table output for terminal display
//   - CSVWriter: the rows as RFC 4180 CSV, header included
//   - JSONWriter: an array of objects keyed by the header names
//   - MarkdownWriter: a document with a summary, a chart and the rows table
//   - HTMLWriter: a standalone HTML document
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output. New selects a
// writer by config.Format.
package report
