package models

type Catalog struct {
	CatalogName string `json:"catalogName"`
}

type Schema struct {
	Catalog    string `json:"catalog"`
	SchemaName string `json:"schemaName"`
}

type Table struct {
	Catalog    string  `json:"catalog"`
	SchemaName string  `json:"schemaName"`
	TableName  string  `json:"tableName"`
	TableType  string  `json:"tableType"`
	Remarks    *string `json:"remarks,omitempty"`
}

// SchemaFilter narrows a schema listing. Empty fields are not applied.
type SchemaFilter struct {
	Catalog string
	Schema  string
}

// TableFilter narrows a table listing. Empty fields are not applied.
type TableFilter struct {
	Catalog string
	Schema  string
	Table   string
	Type    string
}
