// Package watch re-runs a command whenever one of a set of files changes.
// Events are debounced so an editor save or an atomic rename triggers a
// single run.
package watch
