// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// dispatches the selected CMD operation and prints its result.
package cli
