// Package logging builds slog loggers for the CLI and library components.
//
// It offers a console handler for interactive runs and a JSON handler for
// machine-readable logs, plus small attribute helpers so call sites stay
// terse. Component loggers carry a standardized "component" attribute; the
// console handler promotes it into the message prefix.
package logging
