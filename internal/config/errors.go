package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate and Config.ValidateServe so
// that callers can use errors.Is while still showing a readable message.
var (
	// ErrNoCategory is returned when a report is requested without any
	// category id.
	ErrNoCategory = errors.New("no category specified: provide one or more category ids")

	// ErrNoSource is returned when no datastandard source is configured,
	// neither by flag nor by configuration file.
	ErrNoSource = errors.New("no source specified: use --source or set source in the configuration file")

	// ErrInvalidTimeout is returned when the upstream timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrUnknownFormat is returned for report formats that have no writer.
	ErrUnknownFormat = errors.New("unknown report format")

	// ErrNoAddress is returned when the HTTP server has no listen address.
	ErrNoAddress = errors.New("no listen address specified")
)
