// Package edsl renders sequences as editable HCL source and parses that
// source back into the in-memory model. Generation is the inverse of
// expansion: given a stored seqJson document, it reconstructs the textual
// form a mission author would write by hand.
//
// The surface is one sequence block holding command blocks:
//
//	sequence "seq-1" {
//	  metadata = { planId = "plan-9" }
//
//	  command "PREHEAT_OVEN" {
//	    args = [200]
//	    at   = "2025-123T01:02:03.000"
//	  }
//	}
//
// A command carries at most one timing attribute: at (absolute DOY tag),
// after (command-relative HMS offset) or epoch (epoch-relative HMS offset);
// none means command-complete.
package edsl
