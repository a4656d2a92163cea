// Package ir provides the foundational value vocabulary shared by every
// tempo package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the value layer at the
// bottom of the dependency graph.
//
// Key design constraints:
//   - Local date and time types are timezone-free; LocalDateTime is UTC only
//   - Dates and times have an integer wire form (yyyymmdd, hhmmssfff, hhmm,
//     yyyymmddhhmmssfff) used by every binary and key encoding
//   - Every error surfaced by serialization or key handling is an *Error
//     carrying a Code, so callers can branch with Is
package ir
