// Package config provides configuration structures and utilities for dsreport.
// It defines where datastandards are loaded from, how upstream services are
// contacted, which report format is written and where history is kept.
package config
