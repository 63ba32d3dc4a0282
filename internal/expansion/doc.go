// Package expansion compiles and runs mission-authored expansion logic
// against a generated dictionary schema set.
//
// Logic is HCL: a series of command blocks, each naming a stem and carrying
// an args expression plus at most one timing attribute (at, after, epoch).
// Typecheck parses the logic and checks every block against the dictionary
// and the activity's typed attributes, returning a reusable Artifact or a
// diagnostic list. Execute evaluates an Artifact against one simulated
// activity and yields the commands it emits.
//
// Both operations run on a bounded worker pool so a panicking or hanging
// piece of logic is confined to its own task. Compiled artifacts are
// memoized in a process-wide single-flight cache keyed by a content hash
// over the inputs that determine the compilation.
package expansion
