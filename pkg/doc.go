// Package pkg holds the public custdb packages.
//
// # Store
//
// pkg/store keeps records in a map keyed by exact name, with a B-tree index
// ordered by lower-cased name for listings. Every operation takes the
// store's lock, so concurrent connections observe a single order of
// operations. Returned records are copies.
//
// # Bootstrap
//
// pkg/bootstrap reads name|age|address|phone lines. Missing trailing fields
// are empty, blank names are skipped, the first occurrence of a name wins
// and an age that is not an integer becomes empty.
//
// # Protocol
//
// pkg/protocol defines three response shapes:
//
//	message:  {"message": "Customer not found"}
//	          {"message": "Customer has been added", "success": true}
//	record:   {"name": "Alice", "age": 30, "address": "1 Main St", "phone": ""}
//	listing:  {"Alice": {...}, "bob": {...}}
//
// Listings are written in sorted order and re-sorted by decoders, so codecs
// without ordered maps still produce sorted results.
//
// # Client
//
// pkg/client validates input the same way the interactive client does:
//
//   - name must not be empty
//   - age is empty or a positive integer
//   - phone is empty or XXX XXX-XXXX
//
// # Configuration
//
// pkg/config resolves settings from flags, CUSTDB_* environment variables, a
// YAML file and defaults, in that order.
package pkg
