// Package types defines shared data structures used across the backend:
// the persisted Script and Dependency records, parsed userscript Metadata,
// and the wire types of the cross-context bridge protocol.
package types
