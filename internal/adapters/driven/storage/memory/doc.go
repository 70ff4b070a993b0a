// Package memory provides the in-memory Store adapter.
//
// Data lives for the lifetime of the process. All methods are safe for
// concurrent use; no lock is held between calls.
package memory
