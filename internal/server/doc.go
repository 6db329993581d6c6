// Package server exposes report generation over HTTP.
//
// GET /report/{categoryID} loads the configured datastandard, builds the
// report and renders it in the format given by the "format" query parameter
// (CSV by default). Failures are translated into status codes: an upstream
// error keeps the upstream status code and reason phrase, a broken
// datastandard is 422, a missing source is 503, an upstream timeout is 504
// and everything else is 500.
package server
