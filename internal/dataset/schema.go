// Package dataset turns raw transaction files into transformed, partitioned
// datasets ready for training and evaluation.
package dataset

// ColumnType describes how a transformed column is fed to the model.
type ColumnType string

// Column types.
const (
	ColumnIgnore     ColumnType = "ignore"
	ColumnContinuous ColumnType = "continuous"
	ColumnNominal    ColumnType = "nominal"
	ColumnMonetary   ColumnType = "monetary"
)

// Column is one position in a transformed record.
type Column struct {
	Name  string
	Type  ColumnType
	Index int
}

// Schema lists the transformed columns and the output (label) column.
type Schema struct {
	Columns     []Column
	LabelIndex  int
	RawWidth    int
	RawLabel    int
	FraudLabel  string
	HonestLabel string
}

// Raw field positions that the transformer expands.
const (
	AddressField   = 1
	TimestampField = 2
)

// TransactionSchema is the layout of the transaction export: ten raw fields that
// expand to sixteen transformed columns.
var TransactionSchema = Schema{
	Columns: []Column{
		{Name: "id", Index: 0, Type: ColumnIgnore},
		{Name: "ip1", Index: 1, Type: ColumnContinuous},
		{Name: "ip2", Index: 2, Type: ColumnContinuous},
		{Name: "ip3", Index: 3, Type: ColumnContinuous},
		{Name: "ip4", Index: 4, Type: ColumnContinuous},
		{Name: "seconds", Index: 5, Type: ColumnContinuous},
		{Name: "day", Index: 6, Type: ColumnContinuous},
		{Name: "dayOfWeek", Index: 7, Type: ColumnContinuous},
		{Name: "month", Index: 8, Type: ColumnContinuous},
		{Name: "businessName", Index: 9, Type: ColumnNominal},
		{Name: "totalCharged", Index: 10, Type: ColumnMonetary},
		{Name: "itemAmount", Index: 11, Type: ColumnContinuous},
		{Name: "email", Index: 12, Type: ColumnNominal},
		{Name: "brandName", Index: 13, Type: ColumnNominal},
		{Name: "orderStatus", Index: 14, Type: ColumnIgnore},
		{Name: "isFraud", Index: 15, Type: ColumnNominal},
	},
	LabelIndex:  15,
	RawWidth:    10,
	RawLabel:    9,
	FraudLabel:  "1",
	HonestLabel: "0",
}

// Width returns the number of transformed columns.
func (s Schema) Width() int {
	return len(s.Columns)
}

// Inputs returns the columns fed to the model, in index order.
func (s Schema) Inputs() []Column {
	inputs := make([]Column, 0, len(s.Columns))
	for _, c := range s.Columns {
		if c.Index == s.LabelIndex || c.Type == ColumnIgnore {
			continue
		}
		inputs = append(inputs, c)
	}
	return inputs
}
