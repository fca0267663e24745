// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder and an optional
//     rotating file sink,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Every monitor receives a context carrying a named logger, so log lines
// always say which loop produced them.
package logger
