// Package noproto implements a schema-driven, in-place mutable binary
// serialization engine. A Schema describes a tree of typed fields; a Buffer
// holds the binary encoding of one value of that schema and can be opened,
// mutated at any nested path, and re-closed without a full re-encode pass.
//
// Scalar reads require no allocation, and mutations touch only the bytes of
// the changed field; a replacement that does not fit in its previously
// allocated space is appended fresh and the old bytes are reclaimed by
// Buffer.Compact.
package noproto
