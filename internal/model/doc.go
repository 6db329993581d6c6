// Package model defines the core data structures used throughout dsreport.
//
// This package contains the following main types:
//   - Datastandard: The product data model (categories, attributes, groups)
//   - Row: A single line of the attribute report
//   - Snapshot: A loaded Datastandard together with where it came from
//   - ReportRun: The result of generating a report for one category
//
// Models live in their own package because the builder, the writers, the
// pipeline and the history database all share them.
//
// Optional values of the input document are pointers. A nil pointer means the
// value was absent, which is not the same as its zero value: a link with
// Optional == nil is mandatory, and a nil collection on the Datastandard is
// treated as an incomplete document.
package model
