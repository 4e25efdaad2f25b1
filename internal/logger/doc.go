// Package logger wraps zap to provide:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and an optional file sink for fullscreen terminal mode.
//
// Components receive a context and extract the logger from it, so every log
// line carries the name of the loop or worker that produced it.
package logger
