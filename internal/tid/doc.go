// Package tid implements TemporalId, the 12-byte ordered identifier stamped on
// every dataset and record version.
//
// Layout (big-endian):
//
//	bytes 0-3   creation time, whole seconds since the Unix epoch
//	bytes 4-6   machine hash
//	bytes 7-8   process id
//	bytes 9-11  counter, seeded randomly per Generator
//
// Ids compare byte-wise. The all-zero Empty id sorts before every other id.
// Within one Generator, Next is strictly increasing; across processes the
// ordering holds only at one-second resolution.
package tid
