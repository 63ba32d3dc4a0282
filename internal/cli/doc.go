// Package cli parses the seqgen command line into an app.Config. Flags
// override the SEQGEN_* environment defaults.
package cli
