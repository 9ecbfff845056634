// Package errors provides structured error handling for wu.
//
// Errors carry a stable code (e.g., "E121"), a category, and optional
// detail and suggestion text. Components with named failure kinds export
// sentinel errors in their own packages; this registry is the CLI-facing
// layer that turns those failures into actionable messages.
//
// Example:
//
//	return errors.New("E110").
//	    WithDetail("port 3000 already in use").
//	    WithSuggestion("Pass --port to choose another port").
//	    Wrap(err)
package errors
