// Package seqjson holds the canonical in-memory representation of spacecraft
// commands and command sequences, and their lossless conversion to and from
// the seqJson wire format.
//
// A command carries exactly one timing variant. The Time type is a tagged
// value whose constructors are the only way to produce it, so mutual
// exclusion between timing fields holds by construction rather than by
// runtime checks.
package seqjson
