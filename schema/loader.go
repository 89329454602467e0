package schema

// DataModels lists the tables derived from the spreadsheets, in dependency
// order.
func DataModels() []any {
	return []any{&Repid{}, &Disease{}, &Region{}}
}

// Models lists every table the store needs.
func Models() []any {
	return append(DataModels(), &IngestRun{}, &IngestLog{})
}

// TableNames returns the table names of DataModels in the same order.
func TableNames() []string {
	return []string{Repid{}.TableName(), Disease{}.TableName(), Region{}.TableName()}
}
