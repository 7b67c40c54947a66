// Package main provides the entry point for kvopts.
//
// kvopts loads persisted engine OPTIONS files the way the engine does on
// open and reports what it finds:
//
//   - inspect: the DB options and every column family's merged settings
//   - check:   validate one or more files
//   - dump:    re-encode a file in canonical form
//   - open:    open a database with the file's configuration
//   - watch:   reload the file on every change, with Prometheus metrics
//
// Usage:
//
//	kvopts inspect /var/lib/db/OPTIONS-000042
//	kvopts -o json check OPTIONS-*
//	kvopts open --cf users --create OPTIONS-000042 /var/lib/db
package main
