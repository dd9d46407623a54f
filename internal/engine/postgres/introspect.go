package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

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
	schema := req.Schema
	if schema == "" {
		schema = "public"
	}

	lctx := a.logCtx(config, "introspect")
	conn, err := a.connect(ctx, config, lctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	switch req.Op {
	case adapter.ListTables:
		tables, err := a.listTables(ctx, conn, schema)
		if err != nil {
			return nil, err
		}
		return &adapter.IntrospectResult{Tables: tables}, nil
	case adapter.ListViews:
		views, err := a.listViews(ctx, conn, schema)
		if err != nil {
			return nil, err
		}
		return &adapter.IntrospectResult{Views: views}, nil
	case adapter.ListSchemas:
		schemas, err := a.listSchemas(ctx, conn)
		if err != nil {
			return nil, err
		}
		return &adapter.IntrospectResult{Schemas: schemas}, nil
	case adapter.ListDatabases:
		databases, err := a.listDatabases(ctx, conn)
		if err != nil {
			return nil, err
		}
		return &adapter.IntrospectResult{Databases: databases}, nil
	case adapter.ListIndexes:
		indexes, err := a.listIndexes(ctx, conn, schema, req.Table)
		if err != nil {
			return nil, err
		}
		return &adapter.IntrospectResult{Indexes: indexes}, nil
	case adapter.TableDetails:
		if req.Table == "" {
			return nil, adapter.NewInvalidInput(dbcapabilities.PostgreSQL, "introspect", "table_details requires a table name")
		}
		table, err := a.tableDetails(ctx, conn, schema, req.Table, fieldsOrAll(req.Fields))
		if err != nil {
			return nil, err
		}
		return &adapter.IntrospectResult{Table: table}, nil
	case adapter.ViewDetails:
		if req.View == "" {
			return nil, adapter.NewInvalidInput(dbcapabilities.PostgreSQL, "introspect", "view_details requires a view name")
		}
		view, err := a.viewDetails(ctx, conn, schema, req.View)
		if err != nil {
			return nil, err
		}
		return &adapter.IntrospectResult{View: view}, nil
	default:
		return nil, adapter.NewInvalidInput(dbcapabilities.PostgreSQL, "introspect",
			fmt.Sprintf("unknown introspect operation '%s'", req.Op))
	}
}

func fieldsOrAll(f *adapter.TableFields) adapter.TableFields {
	if f == nil || f.IsZero() {
		return adapter.AllTableFields()
	}
	return *f
}

// stringList runs a query whose first column is a name and collects it.
func stringList(ctx context.Context, conn *pgx.Conn, query string, args ...interface{}) ([]string, error) {
	rows, err := conn.Query(ctx, query, args...)
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

func (a *Adapter) listTables(ctx context.Context, conn *pgx.Conn, schema string) ([]string, error) {
	tables, err := stringList(ctx, conn, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, schema)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.PostgreSQL, "list_tables",
			fmt.Errorf("error fetching table information: %v", err))
	}
	return tables, nil
}

func (a *Adapter) listViews(ctx context.Context, conn *pgx.Conn, schema string) ([]string, error) {
	views, err := stringList(ctx, conn, `
		SELECT table_name
		FROM information_schema.views
		WHERE table_schema = $1
		ORDER BY table_name`, schema)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.PostgreSQL, "list_views",
			fmt.Errorf("error fetching view information: %v", err))
	}
	return views, nil
}

func (a *Adapter) listSchemas(ctx context.Context, conn *pgx.Conn) ([]string, error) {
	schemas, err := stringList(ctx, conn, `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY schema_name`)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.PostgreSQL, "list_schemas",
			fmt.Errorf("error fetching schema information: %v", err))
	}
	return schemas, nil
}

func (a *Adapter) listDatabases(ctx context.Context, conn *pgx.Conn) ([]string, error) {
	databases, err := stringList(ctx, conn, `
		SELECT datname
		FROM pg_database
		WHERE datistemplate = false
		ORDER BY datname`)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.PostgreSQL, "list_databases",
			fmt.Errorf("error fetching database information: %v", err))
	}
	return databases, nil
}

func (a *Adapter) listIndexes(ctx context.Context, conn *pgx.Conn, schema, table string) ([]adapter.IndexSummary, error) {
	query := `
		SELECT indexname, tablename, indexdef
		FROM pg_indexes
		WHERE schemaname = $1`
	args := []interface{}{schema}
	if table != "" {
		query += ` AND tablename = $2`
		args = append(args, table)
	}
	query += ` ORDER BY tablename, indexname`

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.PostgreSQL, "list_indexes",
			fmt.Errorf("error fetching index information: %v", err))
	}
	defer rows.Close()

	indexes := []adapter.IndexSummary{}
	for rows.Next() {
		var name, tableName, def string
		if err := rows.Scan(&name, &tableName, &def); err != nil {
			return nil, adapter.NewQueryError(dbcapabilities.PostgreSQL, "list_indexes",
				fmt.Errorf("error reading index row: %v", err))
		}
		// Primary keys are reported through table details, not as indexes
		if strings.HasSuffix(name, "_pkey") {
			continue
		}
		indexes = append(indexes, adapter.IndexSummary{
			Name:    name,
			Table:   tableName,
			Unique:  strings.Contains(def, "UNIQUE INDEX"),
			Columns: indexColumns(def),
		})
	}
	return indexes, rows.Err()
}

// indexColumns extracts the column list from the trailing parenthesized
// part of an index definition.
func indexColumns(def string) []string {
	open := strings.LastIndex(def, "(")
	end := strings.LastIndex(def, ")")
	if open < 0 || end <= open {
		return nil
	}
	parts := strings.Split(def[open+1:end], ",")
	columns := make([]string, 0, len(parts))
	for _, p := range parts {
		columns = append(columns, strings.TrimSpace(p))
	}
	return columns
}

func (a *Adapter) tableDetails(ctx context.Context, conn *pgx.Conn, schema, table string, fields adapter.TableFields) (*adapter.TableInfo, error) {
	var count int
	err := conn.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2`, schema, table).Scan(&count)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.PostgreSQL, "table_details",
			fmt.Errorf("error checking table existence: %v", err))
	}
	if count == 0 {
		return nil, adapter.NewInvalidInput(dbcapabilities.PostgreSQL, "table_details",
			fmt.Sprintf("Table '%s' not found in schema '%s'", table, schema))
	}

	info := &adapter.TableInfo{
		Name:        table,
		Schema:      schema,
		ForeignKeys: []adapter.ForeignKeyInfo{},
		Indexes:     []adapter.IndexInfo{},
	}

	if fields.Columns {
		columns, err := a.tableColumns(ctx, conn, schema, table)
		if err != nil {
			return nil, err
		}
		info.Columns = columns
	}
	if fields.PrimaryKey {
		pk, err := a.primaryKey(ctx, conn, schema, table)
		if err != nil {
			return nil, err
		}
		info.PrimaryKey = pk
	}
	if fields.ForeignKeys {
		fks, err := a.foreignKeys(ctx, conn, schema, table)
		if err != nil {
			return nil, err
		}
		info.ForeignKeys = fks
	}
	if fields.Indexes {
		summaries, err := a.listIndexes(ctx, conn, schema, table)
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

func (a *Adapter) tableColumns(ctx context.Context, conn *pgx.Conn, schema, table string) ([]adapter.ColumnInfo, error) {
	rows, err := conn.Query(ctx, `
		SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, schema, table)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.PostgreSQL, "table_details",
			fmt.Errorf("error fetching column information: %v", err))
	}
	defer rows.Close()

	columns := []adapter.ColumnInfo{}
	for rows.Next() {
		var col adapter.ColumnInfo
		var nullable string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &col.Default); err != nil {
			return nil, adapter.NewQueryError(dbcapabilities.PostgreSQL, "table_details",
				fmt.Errorf("error reading column row: %v", err))
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (a *Adapter) primaryKey(ctx context.Context, conn *pgx.Conn, schema, table string) ([]string, error) {
	pk, err := stringList(ctx, conn, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY kcu.ordinal_position`, schema, table)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.PostgreSQL, "table_details",
			fmt.Errorf("error fetching primary key information: %v", err))
	}
	return pk, nil
}

// foreignKeys groups constraint rows by constraint name, keeping the local
// and referenced column lists parallel and position-ordered.
func (a *Adapter) foreignKeys(ctx context.Context, conn *pgx.Conn, schema, table string) ([]adapter.ForeignKeyInfo, error) {
	rows, err := conn.Query(ctx, `
		SELECT tc.constraint_name, kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY tc.constraint_name, kcu.ordinal_position`, schema, table)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.PostgreSQL, "table_details",
			fmt.Errorf("error fetching foreign key information: %v", err))
	}
	defer rows.Close()

	fks := []adapter.ForeignKeyInfo{}
	byName := map[string]int{}
	for rows.Next() {
		var name, column, refTable, refColumn string
		if err := rows.Scan(&name, &column, &refTable, &refColumn); err != nil {
			return nil, adapter.NewQueryError(dbcapabilities.PostgreSQL, "table_details",
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

func (a *Adapter) viewDetails(ctx context.Context, conn *pgx.Conn, schema, view string) (*adapter.ViewInfo, error) {
	var definition *string
	err := conn.QueryRow(ctx, `
		SELECT view_definition
		FROM information_schema.views
		WHERE table_schema = $1 AND table_name = $2`, schema, view).Scan(&definition)
	if err == pgx.ErrNoRows {
		return nil, adapter.NewInvalidInput(dbcapabilities.PostgreSQL, "view_details",
			fmt.Sprintf("View '%s' not found in schema '%s'", view, schema))
	}
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.PostgreSQL, "view_details",
			fmt.Errorf("error fetching view definition: %v", err))
	}

	columns, err := a.tableColumns(ctx, conn, schema, view)
	if err != nil {
		return nil, err
	}

	return &adapter.ViewInfo{
		Name:       view,
		Schema:     schema,
		Definition: definition,
		Columns:    columns,
	}, nil
}
