// Package output provides the destinations cidev writes to: a stream writer
// for reports printed to stdout, and a file writer that replaces files
// atomically and can keep a backup of the previous contents.
package output
