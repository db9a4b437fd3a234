// Package lockfile removes packages from Cargo.lock documents.
//
// The package is organized around three concerns:
//
//   - Filtering (filter.go): a single forward pass over the document that
//     drops whole [[package]] blocks by name and strips dependency-array
//     entries that still reference them. Everything else is copied verbatim.
//
//   - Scanning (scan.go): a small TOML-aware bracket counter used to find the
//     end of multi-line dependency arrays. Brackets inside strings and
//     comments are ignored.
//
//   - Validation (validate.go): structural checks run on the filtered output
//     before it is persisted. A failed check means the output must not be
//     written.
//
// [StripFile] ties the three together for an on-disk lock file.
package lockfile
