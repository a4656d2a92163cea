// Package dataset implements temporal record storage over an import graph of
// datasets.
//
// Every saved record version carries a fresh temporal id. A lookup for a key
// walks the lookup list of the starting dataset (the dataset itself, its
// imports depth-first, then the root) and stops at the first dataset holding
// any version of the key at or before the cutoff. A delete marker found
// there hides every version further down the list.
//
// Datasets are themselves records of type DataSet, keyed by name and stored
// in their parent dataset. An optional DataSetDetail record, keyed by
// dataset id and stored in the same parent, carries the read-only flag and
// the cutoffs that turn a dataset into a historical view.
package dataset
