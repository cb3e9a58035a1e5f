// Package model defines the core domain models used throughout the application.
package model

import "strings"

// Delimiter separates fields in every dataset file. Fields are never quoted.
const Delimiter = ","

// RawRecord is one input line split on the delimiter, in file order.
type RawRecord []string

// TransformedRecord is a record whose address and timestamp fields have been
// expanded into numeric sub-values.
type TransformedRecord []string

// ParseRawRecord splits a line into a RawRecord.
func ParseRawRecord(line string) RawRecord {
	return RawRecord(strings.Split(line, Delimiter))
}

// ParseTransformedRecord splits a transformed line into its columns.
func ParseTransformedRecord(line string) TransformedRecord {
	return TransformedRecord(strings.Split(line, Delimiter))
}

// Line joins the record back into a delimited line.
func (r TransformedRecord) Line() string {
	return strings.Join(r, Delimiter)
}

// Field returns the value at index, or false when the record is too short.
func (r TransformedRecord) Field(index int) (string, bool) {
	if index < 0 || index >= len(r) {
		return "", false
	}
	return r[index], true
}

// PartitionedDataset holds the two disjoint partitions built from one source file.
type PartitionedDataset struct {
	Source     string
	Training   []TransformedRecord
	Evaluation []TransformedRecord
}

// Len returns the total number of records across both partitions.
func (d *PartitionedDataset) Len() int {
	return len(d.Training) + len(d.Evaluation)
}
