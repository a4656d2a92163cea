// Package meta describes record types as explicit field tables.
//
// A Type lists its fields in declaration order and names the fields that
// form its key. Each Field carries getter and setter closures, so format
// adapters can walk and populate objects without runtime reflection. Typed
// Go structs describe themselves with the generic constructors (Value,
// Nullable, List, Embedded, Enum, KeyRef); types known only at run time use
// Dynamic, which stores values in a Record map.
//
// Coerce holds the one set of value conversion rules every adapter shares:
// widening is silent, lossy narrowing is a TYPE_MISMATCH.
package meta
