// Package tree defines the hierarchical document protocol shared by every
// serialization format.
//
// A document is one named root holding a dict. A dict holds named elements;
// each element holds exactly one dict, array, or value. An array holds
// anonymous items; each item holds one dict or value.
//
// Writers receive the protocol as push calls (Writer). Readers produce it as
// a stream of tokens (Reader). Copy connects the two, so any format can be
// converted to any other through the protocol alone.
//
// Machine is the single validator of the call grammar. Every Writer
// implementation embeds one and calls it before acting, so a malformed call
// sequence fails at the call that breaks the grammar with a
// PROTOCOL_VIOLATION error naming the call and the current state.
//
// Thread-safety: writers, readers, and machines are single-use and must not
// be shared between goroutines.
package tree
