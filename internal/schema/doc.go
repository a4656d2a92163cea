// Package schema compiles CUE record schemas into meta.Type descriptors.
//
// The CLI has no compiled-in record types; it reads them from a directory of
// CUE files:
//
//	type: Quote: {
//		key: ["Ticker", "Venue"]
//		fields: {
//			Ticker:  "string"
//			Venue:   "string"
//			Price:   "double"
//			Fixings: "[double]"
//			Side:    enum: ["None", "Buy", "Sell"]
//			Leg:     "Leg"
//			Legs:    "[Leg]"
//			Issuer:  "key:Issuer"
//		}
//	}
//
//	data: Leg: fields: {
//		Venue: "string"
//		Qty:   "int64"
//	}
//
// A field type is a kind name (string, double, bool, int32, int64, date,
// time, minute, datetime, temporal_id), the name of a declared type or data
// type for embedded data, or key:<Type> for a key reference. Wrapping it in
// brackets declares a list. Field order follows the CUE source.
//
// Every type declared under "type" is a record type and must declare a key.
// Compiled records are dynamic (*meta.Record) instances.
package schema
