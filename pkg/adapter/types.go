package adapter

// ConnectionInfo reports the identity of a successfully validated connection.
type ConnectionInfo struct {
	DatabaseVersion   string `json:"database_version"`
	ServerInfo        string `json:"server_info"`
	ConnectedDatabase string `json:"connected_database"`
	User              string `json:"user"`
}

// QueryResult holds the outcome of one executed statement. Rows is ordered
// row-major with each row parallel to Columns; every value is JSON-safe.
type QueryResult struct {
	Columns      []string        `json:"columns"`
	Rows         [][]interface{} `json:"rows"`
	RowsReturned int             `json:"rows_returned"`
	RowsAffected int64           `json:"rows_affected"`
	Truncated    bool            `json:"truncated"`
	ExecutionMS  int64           `json:"execution_ms"`
}

// ColumnInfo describes one column of a table or view.
type ColumnInfo struct {
	Name     string  `json:"name"`
	DataType string  `json:"data_type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
}

// ForeignKeyInfo describes one foreign key constraint. Columns and
// ReferencedColumns are parallel lists in constraint position order.
type ForeignKeyInfo struct {
	Name              string   `json:"name"`
	Columns           []string `json:"columns"`
	ReferencedTable   string   `json:"referenced_table"`
	ReferencedColumns []string `json:"referenced_columns"`
}

// IndexInfo describes one index on a table. Indexes that back primary keys
// are excluded from listings.
type IndexInfo struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// IndexSummary is an index with its owning table, used by catalog-wide
// index listings.
type IndexSummary struct {
	Name    string   `json:"name"`
	Table   string   `json:"table"`
	Unique  bool     `json:"unique"`
	Columns []string `json:"columns"`
}

// TableInfo is the full description of one table.
type TableInfo struct {
	Name        string           `json:"name"`
	Schema      string           `json:"schema,omitempty"`
	Columns     []ColumnInfo     `json:"columns"`
	PrimaryKey  []string         `json:"primary_key,omitempty"`
	ForeignKeys []ForeignKeyInfo `json:"foreign_keys"`
	Indexes     []IndexInfo      `json:"indexes"`
}

// ViewInfo is the full description of one view.
type ViewInfo struct {
	Name       string       `json:"name"`
	Schema     string       `json:"schema,omitempty"`
	Definition *string      `json:"definition,omitempty"`
	Columns    []ColumnInfo `json:"columns"`
}

// IntrospectOp enumerates the catalog operations.
type IntrospectOp string

const (
	ListTables    IntrospectOp = "list_tables"
	ListViews     IntrospectOp = "list_views"
	ListSchemas   IntrospectOp = "list_schemas"
	ListDatabases IntrospectOp = "list_databases"
	ListIndexes   IntrospectOp = "list_indexes"
	TableDetails  IntrospectOp = "table_details"
	ViewDetails   IntrospectOp = "view_details"
)

// ParseIntrospectOp resolves an operation name. Returns false if unknown.
func ParseIntrospectOp(name string) (IntrospectOp, bool) {
	switch IntrospectOp(name) {
	case ListTables, ListViews, ListSchemas, ListDatabases, ListIndexes, TableDetails, ViewDetails:
		return IntrospectOp(name), true
	}
	return "", false
}

// TableFields selects which sections of a table description to populate.
type TableFields struct {
	Columns     bool `json:"columns"`
	PrimaryKey  bool `json:"primary_key"`
	ForeignKeys bool `json:"foreign_keys"`
	Indexes     bool `json:"indexes"`
}

// AllTableFields selects every section.
func AllTableFields() TableFields {
	return TableFields{Columns: true, PrimaryKey: true, ForeignKeys: true, Indexes: true}
}

// IsZero reports whether no section is selected.
func (f TableFields) IsZero() bool {
	return !f.Columns && !f.PrimaryKey && !f.ForeignKeys && !f.Indexes
}

// IntrospectRequest names one catalog operation with its target and filters.
// Table and View name the object for the detail operations; Schema filters
// listings on engines with schema namespaces; Database overrides the
// connected database where the engine allows it.
type IntrospectRequest struct {
	Op       IntrospectOp `json:"op"`
	Table    string       `json:"table,omitempty"`
	View     string       `json:"view,omitempty"`
	Schema   string       `json:"schema,omitempty"`
	Database string       `json:"database,omitempty"`
	Fields   *TableFields `json:"fields,omitempty"`
}

// IntrospectResult carries the outcome of one catalog operation. Exactly one
// field is set, matching the request's op.
type IntrospectResult struct {
	Tables    []string       `json:"tables,omitempty"`
	Views     []string       `json:"views,omitempty"`
	Schemas   []string       `json:"schemas,omitempty"`
	Databases []string       `json:"databases,omitempty"`
	Indexes   []IndexSummary `json:"indexes,omitempty"`
	Table     *TableInfo     `json:"table,omitempty"`
	View      *ViewInfo      `json:"view,omitempty"`
}
