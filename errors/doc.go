// Package errors provides structured error types for diagchan.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries the channel name involved, the offending
// value and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseRestore, errors.KindInvalidData).
//		Channel("net").
//		Detail("duplicate channel name").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfBounds(errors.PhaseRegistry, 1024, 1024)
//	err := errors.Capacity("http.request", 1024)
//
// Capacity errors are the only ones raised with panic. Everything else is
// returned. All errors implement the standard error interface and support
// errors.Is/As.
package errors
