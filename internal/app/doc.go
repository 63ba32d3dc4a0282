// Package app wires the expansion core into a runnable application: it
// builds the logger, the persistence backends, the expansion engine and the
// service facade from one validated Config, and drives a full local
// expansion run from dictionary and rule files on disk.
package app
