// Package item defines the ordered Item record and the pieces derived from
// it: the total order, keyset cursors and snapshot fingerprints.
//
// The total order is (key desc, created_at desc, id desc). Keys may collide
// after heavy use; the tie-breakers keep the order strict.
//
// Fingerprints and cursors are built from RFC 8785 canonical JSON so that the
// same state always yields byte-identical input to the hash.
package item
