package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbplane/dbplane/pkg/adapter"
	"github.com/dbplane/dbplane/pkg/dbcapabilities"
)

// Introspect performs one catalog operation.
func (a *Adapter) Introspect(ctx context.Context, config adapter.ConnectionConfig, req adapter.IntrospectRequest) (*adapter.IntrospectResult, error) {
	if err := a.checkEngine(config, "introspect"); err != nil {
		return nil, err
	}
	if req.Database != "" {
		config.Database = req.Database
	}

	lctx := a.logCtx(config, "introspect")
	db, err := a.connect(ctx, config, lctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	switch req.Op {
	case adapter.ListDatabases, adapter.ListSchemas:
		// MySQL schemas and databases are the same namespace
		databases, err := a.listDatabases(ctx, db)
		if err != nil {
			return nil, err
		}
		if req.Op == adapter.ListSchemas {
			return &adapter.IntrospectResult{Schemas: databases}, nil
		}
		return &adapter.IntrospectResult{Databases: databases}, nil
	}

	schema, err := effectiveSchema(ctx, db, req.Schema)
	if err != nil {
		return nil, err
	}

	switch req.Op {
	case adapter.ListTables:
		tables, err := a.listRelations(ctx, db, schema, "BASE TABLE")
		if err != nil {
			return nil, err
		}
		return &adapter.IntrospectResult{Tables: tables}, nil
	case adapter.ListViews:
		views, err := a.listRelations(ctx, db, schema, "VIEW")
		if err != nil {
			return nil, err
		}
		return &adapter.IntrospectResult{Views: views}, nil
	case adapter.ListIndexes:
		indexes, err := a.listIndexes(ctx, db, schema, req.Table)
		if err != nil {
			return nil, err
		}
		return &adapter.IntrospectResult{Indexes: indexes}, nil
	case adapter.TableDetails:
		if req.Table == "" {
			return nil, adapter.NewInvalidInput(dbcapabilities.MySQL, "introspect", "table_details requires a table name")
		}
		table, err := a.tableDetails(ctx, db, schema, req.Table, fieldsOrAll(req.Fields))
		if err != nil {
			return nil, err
		}
		return &adapter.IntrospectResult{Table: table}, nil
	case adapter.ViewDetails:
		if req.View == "" {
			return nil, adapter.NewInvalidInput(dbcapabilities.MySQL, "introspect", "view_details requires a view name")
		}
		view, err := a.viewDetails(ctx, db, schema, req.View)
		if err != nil {
			return nil, err
		}
		return &adapter.IntrospectResult{View: view}, nil
	default:
		return nil, adapter.NewInvalidInput(dbcapabilities.MySQL, "introspect",
			fmt.Sprintf("unknown introspect operation '%s'", req.Op))
	}
}

func fieldsOrAll(f *adapter.TableFields) adapter.TableFields {
	if f == nil || f.IsZero() {
		return adapter.AllTableFields()
	}
	return *f
}

func stringList(ctx context.Context, db *sql.DB, query string, args ...interface{}) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (a *Adapter) listDatabases(ctx context.Context, db *sql.DB) ([]string, error) {
	databases, err := stringList(ctx, db, `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys')
		ORDER BY schema_name`)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.MySQL, "list_databases",
			fmt.Errorf("error fetching database information: %v", err))
	}
	return databases, nil
}

func (a *Adapter) listRelations(ctx context.Context, db *sql.DB, schema, tableType string) ([]string, error) {
	names, err := stringList(ctx, db, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = ?
		ORDER BY table_name`, schema, tableType)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.MySQL, "list_tables",
			fmt.Errorf("error fetching table information: %v", err))
	}
	return names, nil
}

// listIndexes groups information_schema.statistics rows by index, keeping
// columns in seq_in_index order. The PRIMARY index is reported through
// table details instead.
func (a *Adapter) listIndexes(ctx context.Context, db *sql.DB, schema, table string) ([]adapter.IndexSummary, error) {
	query := `
		SELECT index_name, table_name, non_unique, column_name
		FROM information_schema.statistics
		WHERE table_schema = ? AND index_name != 'PRIMARY'`
	args := []interface{}{schema}
	if table != "" {
		query += ` AND table_name = ?`
		args = append(args, table)
	}
	query += ` ORDER BY table_name, index_name, seq_in_index`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.MySQL, "list_indexes",
			fmt.Errorf("error fetching index information: %v", err))
	}
	defer rows.Close()

	indexes := []adapter.IndexSummary{}
	byKey := map[string]int{}
	for rows.Next() {
		var name, tableName, column string
		var nonUnique int
		if err := rows.Scan(&name, &tableName, &nonUnique, &column); err != nil {
			return nil, adapter.NewQueryError(dbcapabilities.MySQL, "list_indexes",
				fmt.Errorf("error reading index row: %v", err))
		}
		key := tableName + "." + name
		idx, ok := byKey[key]
		if !ok {
			idx = len(indexes)
			byKey[key] = idx
			indexes = append(indexes, adapter.IndexSummary{
				Name:   name,
				Table:  tableName,
				Unique: nonUnique == 0,
			})
		}
		indexes[idx].Columns = append(indexes[idx].Columns, column)
	}
	return indexes, rows.Err()
}

func (a *Adapter) tableDetails(ctx context.Context, db *sql.DB, schema, table string, fields adapter.TableFields) (*adapter.TableInfo, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = ? AND table_name = ?`, schema, table).Scan(&count)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.MySQL, "table_details",
			fmt.Errorf("error checking table existence: %v", err))
	}
	if count == 0 {
		return nil, adapter.NewInvalidInput(dbcapabilities.MySQL, "table_details",
			fmt.Sprintf("Table '%s' not found in schema '%s'", table, schema))
	}

	info := &adapter.TableInfo{
		Name:        table,
		Schema:      schema,
		ForeignKeys: []adapter.ForeignKeyInfo{},
		Indexes:     []adapter.IndexInfo{},
	}

	if fields.Columns {
		columns, err := a.tableColumns(ctx, db, schema, table)
		if err != nil {
			return nil, err
		}
		info.Columns = columns
	}
	if fields.PrimaryKey {
		pk, err := stringList(ctx, db, `
			SELECT column_name
			FROM information_schema.key_column_usage
			WHERE table_schema = ? AND table_name = ? AND constraint_name = 'PRIMARY'
			ORDER BY ordinal_position`, schema, table)
		if err != nil {
			return nil, adapter.NewQueryError(dbcapabilities.MySQL, "table_details",
				fmt.Errorf("error fetching primary key information: %v", err))
		}
		info.PrimaryKey = pk
	}
	if fields.ForeignKeys {
		fks, err := a.foreignKeys(ctx, db, schema, table)
		if err != nil {
			return nil, err
		}
		info.ForeignKeys = fks
	}
	if fields.Indexes {
		summaries, err := a.listIndexes(ctx, db, schema, table)
		if err != nil {
			return nil, err
		}
		indexes := make([]adapter.IndexInfo, 0, len(summaries))
		for _, s := range summaries {
			indexes = append(indexes, adapter.IndexInfo{Name: s.Name, Columns: s.Columns, Unique: s.Unique})
		}
		info.Indexes = indexes
	}

	return info, nil
}

func (a *Adapter) tableColumns(ctx context.Context, db *sql.DB, schema, table string) ([]adapter.ColumnInfo, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name, column_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, schema, table)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.MySQL, "table_details",
			fmt.Errorf("error fetching column information: %v", err))
	}
	defer rows.Close()

	columns := []adapter.ColumnInfo{}
	for rows.Next() {
		var col adapter.ColumnInfo
		var nullable string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &col.Default); err != nil {
			return nil, adapter.NewQueryError(dbcapabilities.MySQL, "table_details",
				fmt.Errorf("error reading column row: %v", err))
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// foreignKeys groups key_column_usage rows by constraint name, keeping the
// local and referenced column lists parallel and position-ordered.
func (a *Adapter) foreignKeys(ctx context.Context, db *sql.DB, schema, table string) ([]adapter.ForeignKeyInfo, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT constraint_name, column_name, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ? AND table_name = ? AND referenced_table_name IS NOT NULL
		ORDER BY constraint_name, ordinal_position`, schema, table)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.MySQL, "table_details",
			fmt.Errorf("error fetching foreign key information: %v", err))
	}
	defer rows.Close()

	fks := []adapter.ForeignKeyInfo{}
	byName := map[string]int{}
	for rows.Next() {
		var name, column, refTable, refColumn string
		if err := rows.Scan(&name, &column, &refTable, &refColumn); err != nil {
			return nil, adapter.NewQueryError(dbcapabilities.MySQL, "table_details",
				fmt.Errorf("error reading foreign key row: %v", err))
		}
		idx, ok := byName[name]
		if !ok {
			idx = len(fks)
			byName[name] = idx
			fks = append(fks, adapter.ForeignKeyInfo{Name: name, ReferencedTable: refTable})
		}
		fks[idx].Columns = append(fks[idx].Columns, column)
		fks[idx].ReferencedColumns = append(fks[idx].ReferencedColumns, refColumn)
	}
	return fks, rows.Err()
}

func (a *Adapter) viewDetails(ctx context.Context, db *sql.DB, schema, view string) (*adapter.ViewInfo, error) {
	var definition sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT view_definition
		FROM information_schema.views
		WHERE table_schema = ? AND table_name = ?`, schema, view).Scan(&definition)
	if err == sql.ErrNoRows {
		return nil, adapter.NewInvalidInput(dbcapabilities.MySQL, "view_details",
			fmt.Sprintf("View '%s' not found in schema '%s'", view, schema))
	}
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.MySQL, "view_details",
			fmt.Errorf("error fetching view definition: %v", err))
	}

	columns, err := a.tableColumns(ctx, db, schema, view)
	if err != nil {
		return nil, err
	}

	info := &adapter.ViewInfo{Name: view, Schema: schema, Columns: columns}
	if definition.Valid {
		def := definition.String
		info.Definition = &def
	}
	return info, nil
}
