// Package aggregate implements the sweep pass: discover .log files under the
// source directory, append each one to the aggregate file with a provenance
// header, then delete every discovered file.
//
// A pass is deliberately lossy. Files are removed even when their content
// could not be appended, and the pass result marks that case so operators
// can spot it in logs and in the ledger.
package aggregate
