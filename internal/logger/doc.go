// Package logger is a thin wrapper around zap providing:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level parsing for the --log-level flag,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Services accept a context and log through it, so a component name set
// once at the entry point shows up on every line that component writes.
package logger
