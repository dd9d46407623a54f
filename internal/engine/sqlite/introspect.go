package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dbplane/dbplane/pkg/adapter"
	"github.com/dbplane/dbplane/pkg/dbcapabilities"
)

// Introspect performs one catalog operation. SQLite is a single-file engine:
// there are no databases to enumerate, no schema namespace, and no database
// override.
func (a *Adapter) Introspect(ctx context.Context, config adapter.ConnectionConfig, req adapter.IntrospectRequest) (*adapter.IntrospectResult, error) {
	if err := a.checkEngine(config, "introspect"); err != nil {
		return nil, err
	}
	switch req.Op {
	case adapter.ListDatabases:
		return nil, adapter.NewInvalidInput(dbcapabilities.SQLite, "introspect",
			"SQLite does not support listing databases; each file is one database")
	case adapter.ListSchemas:
		return nil, adapter.NewInvalidInput(dbcapabilities.SQLite, "introspect",
			"SQLite does not support schemas")
	}
	if req.Database != "" {
		return nil, adapter.NewInvalidInput(dbcapabilities.SQLite, "introspect",
			"SQLite does not support a database override; point the connection at another file instead")
	}
	if req.Schema != "" {
		return nil, adapter.NewInvalidInput(dbcapabilities.SQLite, "introspect",
			"SQLite does not support schema filters")
	}

	lctx := a.logCtx(config, "introspect")
	db, err := a.connect(ctx, config, lctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	switch req.Op {
	case adapter.ListTables:
		tables, err := a.listObjects(ctx, db, "table")
		if err != nil {
			return nil, err
		}
		return &adapter.IntrospectResult{Tables: tables}, nil
	case adapter.ListViews:
		views, err := a.listObjects(ctx, db, "view")
		if err != nil {
			return nil, err
		}
		return &adapter.IntrospectResult{Views: views}, nil
	case adapter.ListIndexes:
		indexes, err := a.listIndexes(ctx, db, req.Table)
		if err != nil {
			return nil, err
		}
		return &adapter.IntrospectResult{Indexes: indexes}, nil
	case adapter.TableDetails:
		if req.Table == "" {
			return nil, adapter.NewInvalidInput(dbcapabilities.SQLite, "introspect", "table_details requires a table name")
		}
		table, err := a.tableDetails(ctx, db, req.Table, fieldsOrAll(req.Fields))
		if err != nil {
			return nil, err
		}
		return &adapter.IntrospectResult{Table: table}, nil
	case adapter.ViewDetails:
		if req.View == "" {
			return nil, adapter.NewInvalidInput(dbcapabilities.SQLite, "introspect", "view_details requires a view name")
		}
		view, err := a.viewDetails(ctx, db, req.View)
		if err != nil {
			return nil, err
		}
		return &adapter.IntrospectResult{View: view}, nil
	default:
		return nil, adapter.NewInvalidInput(dbcapabilities.SQLite, "introspect",
			fmt.Sprintf("unknown introspect operation '%s'", req.Op))
	}
}

func fieldsOrAll(f *adapter.TableFields) adapter.TableFields {
	if f == nil || f.IsZero() {
		return adapter.AllTableFields()
	}
	return *f
}

// listObjects enumerates user tables or views from sqlite_master, skipping
// the engine's own bookkeeping tables.
func (a *Adapter) listObjects(ctx context.Context, db *sql.DB, objType string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = ? AND name NOT LIKE 'sqlite_%'
		ORDER BY name`, objType)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.SQLite, "list_"+objType+"s",
			fmt.Errorf("error fetching %s information: %v", objType, err))
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, adapter.NewQueryError(dbcapabilities.SQLite, "list_"+objType+"s",
				fmt.Errorf("error reading %s row: %v", objType, err))
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// listIndexes enumerates named indexes from sqlite_master. Auto-generated
// primary key indexes carry the sqlite_autoindex_ prefix and are skipped.
func (a *Adapter) listIndexes(ctx context.Context, db *sql.DB, table string) ([]adapter.IndexSummary, error) {
	query := `SELECT name, tbl_name FROM sqlite_master WHERE type = 'index'`
	args := []interface{}{}
	if table != "" {
		query += ` AND tbl_name = ?`
		args = append(args, table)
	}
	query += ` ORDER BY tbl_name, name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.SQLite, "list_indexes",
			fmt.Errorf("error fetching index information: %v", err))
	}
	defer rows.Close()

	type entry struct{ name, table string }
	entries := []entry{}
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.name, &e.table); err != nil {
			return nil, adapter.NewQueryError(dbcapabilities.SQLite, "list_indexes",
				fmt.Errorf("error reading index row: %v", err))
		}
		if strings.HasPrefix(e.name, "sqlite_autoindex_") {
			continue
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.SQLite, "list_indexes",
			fmt.Errorf("error reading index rows: %v", err))
	}

	indexes := []adapter.IndexSummary{}
	for _, e := range entries {
		columns, err := a.indexColumns(ctx, db, e.name)
		if err != nil {
			return nil, err
		}
		unique, err := a.indexUnique(ctx, db, e.table, e.name)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, adapter.IndexSummary{
			Name:    e.name,
			Table:   e.table,
			Unique:  unique,
			Columns: columns,
		})
	}
	return indexes, nil
}

// indexColumns reads the ordered column list via PRAGMA index_info.
func (a *Adapter) indexColumns(ctx context.Context, db *sql.DB, index string) ([]string, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA index_info("+quoteIdent(index)+")")
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.SQLite, "list_indexes",
			fmt.Errorf("error fetching index columns: %v", err))
	}
	defer rows.Close()

	columns := []string{}
	for rows.Next() {
		var seqno, cid int
		var name sql.NullString
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, adapter.NewQueryError(dbcapabilities.SQLite, "list_indexes",
				fmt.Errorf("error reading index column row: %v", err))
		}
		if name.Valid {
			columns = append(columns, name.String)
		}
	}
	return columns, rows.Err()
}

// indexUnique reads the unique flag from PRAGMA index_list on the table.
func (a *Adapter) indexUnique(ctx context.Context, db *sql.DB, table, index string) (bool, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA index_list("+quoteIdent(table)+")")
	if err != nil {
		return false, adapter.NewQueryError(dbcapabilities.SQLite, "list_indexes",
			fmt.Errorf("error fetching index list: %v", err))
	}
	defer rows.Close()

	for rows.Next() {
		var seq, unique, partial int
		var name, origin string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return false, adapter.NewQueryError(dbcapabilities.SQLite, "list_indexes",
				fmt.Errorf("error reading index list row: %v", err))
		}
		if name == index {
			return unique == 1, nil
		}
	}
	return false, rows.Err()
}

func (a *Adapter) tableDetails(ctx context.Context, db *sql.DB, table string, fields adapter.TableFields) (*adapter.TableInfo, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&count)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.SQLite, "table_details",
			fmt.Errorf("error checking table existence: %v", err))
	}
	if count == 0 {
		return nil, adapter.NewInvalidInput(dbcapabilities.SQLite, "table_details",
			fmt.Sprintf("Table '%s' not found", table))
	}

	info := &adapter.TableInfo{
		Name:        table,
		ForeignKeys: []adapter.ForeignKeyInfo{},
		Indexes:     []adapter.IndexInfo{},
	}

	columns, pk, err := a.tableColumns(ctx, db, table)
	if err != nil {
		return nil, err
	}
	if fields.Columns {
		info.Columns = columns
	}
	if fields.PrimaryKey {
		info.PrimaryKey = pk
	}
	if fields.ForeignKeys {
		fks, err := a.foreignKeys(ctx, db, table)
		if err != nil {
			return nil, err
		}
		info.ForeignKeys = fks
	}
	if fields.Indexes {
		summaries, err := a.listIndexes(ctx, db, table)
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

// tableColumns reads PRAGMA table_info, returning both the column list and
// the primary key columns in their declared key order.
func (a *Adapter) tableColumns(ctx context.Context, db *sql.DB, table string) ([]adapter.ColumnInfo, []string, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return nil, nil, adapter.NewQueryError(dbcapabilities.SQLite, "table_details",
			fmt.Errorf("error fetching column information: %v", err))
	}
	defer rows.Close()

	type pkEntry struct {
		pos  int
		name string
	}
	columns := []adapter.ColumnInfo{}
	pkEntries := []pkEntry{}
	for rows.Next() {
		var cid, notNull, pk int
		var name, dataType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dflt, &pk); err != nil {
			return nil, nil, adapter.NewQueryError(dbcapabilities.SQLite, "table_details",
				fmt.Errorf("error reading column row: %v", err))
		}
		col := adapter.ColumnInfo{Name: name, DataType: dataType, Nullable: notNull == 0}
		if dflt.Valid {
			d := dflt.String
			col.Default = &d
		}
		columns = append(columns, col)
		if pk > 0 {
			pkEntries = append(pkEntries, pkEntry{pos: pk, name: name})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, adapter.NewQueryError(dbcapabilities.SQLite, "table_details",
			fmt.Errorf("error reading column rows: %v", err))
	}

	// pk column numbering is 1-based key position
	for i := 1; i < len(pkEntries); i++ {
		for j := i; j > 0 && pkEntries[j-1].pos > pkEntries[j].pos; j-- {
			pkEntries[j-1], pkEntries[j] = pkEntries[j], pkEntries[j-1]
		}
	}
	pk := make([]string, 0, len(pkEntries))
	for _, e := range pkEntries {
		pk = append(pk, e.name)
	}
	return columns, pk, nil
}

// foreignKeys groups PRAGMA foreign_key_list rows by constraint id. SQLite
// constraints are unnamed, so each group gets a synthetic fk_{table}_{id}
// name.
func (a *Adapter) foreignKeys(ctx context.Context, db *sql.DB, table string) ([]adapter.ForeignKeyInfo, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA foreign_key_list("+quoteIdent(table)+")")
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.SQLite, "table_details",
			fmt.Errorf("error fetching foreign key information: %v", err))
	}
	defer rows.Close()

	type fkRow struct {
		id, seq  int
		refTable string
		from     string
		to       sql.NullString
	}
	fkRows := []fkRow{}
	for rows.Next() {
		var r fkRow
		var onUpdate, onDelete, match string
		if err := rows.Scan(&r.id, &r.seq, &r.refTable, &r.from, &r.to, &onUpdate, &onDelete, &match); err != nil {
			return nil, adapter.NewQueryError(dbcapabilities.SQLite, "table_details",
				fmt.Errorf("error reading foreign key row: %v", err))
		}
		fkRows = append(fkRows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.SQLite, "table_details",
			fmt.Errorf("error reading foreign key rows: %v", err))
	}

	// An FK declared without a column list (REFERENCES parent) reports a
	// NULL "to"; it implicitly targets the parent's primary key. Resolve it
	// there, and drop the constraint when no key column exists at that
	// position so the column lists stay parallel.
	refPK := map[string][]string{}
	dropped := map[int]bool{}
	for i, r := range fkRows {
		if r.to.Valid {
			continue
		}
		pk, ok := refPK[r.refTable]
		if !ok {
			var err error
			_, pk, err = a.tableColumns(ctx, db, r.refTable)
			if err != nil {
				return nil, err
			}
			refPK[r.refTable] = pk
		}
		if r.seq >= len(pk) {
			dropped[r.id] = true
			continue
		}
		fkRows[i].to = sql.NullString{String: pk[r.seq], Valid: true}
	}

	fks := []adapter.ForeignKeyInfo{}
	byID := map[int]int{}
	for _, r := range fkRows {
		if dropped[r.id] {
			continue
		}
		idx, ok := byID[r.id]
		if !ok {
			idx = len(fks)
			byID[r.id] = idx
			fks = append(fks, adapter.ForeignKeyInfo{
				Name:            fmt.Sprintf("fk_%s_%d", table, r.id),
				ReferencedTable: r.refTable,
			})
		}
		fks[idx].Columns = append(fks[idx].Columns, r.from)
		fks[idx].ReferencedColumns = append(fks[idx].ReferencedColumns, r.to.String)
	}
	return fks, nil
}

func (a *Adapter) viewDetails(ctx context.Context, db *sql.DB, view string) (*adapter.ViewInfo, error) {
	var definition sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT sql FROM sqlite_master WHERE type = 'view' AND name = ?`, view).Scan(&definition)
	if err == sql.ErrNoRows {
		return nil, adapter.NewInvalidInput(dbcapabilities.SQLite, "view_details",
			fmt.Sprintf("View '%s' not found", view))
	}
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.SQLite, "view_details",
			fmt.Errorf("error fetching view definition: %v", err))
	}

	columns, _, err := a.tableColumns(ctx, db, view)
	if err != nil {
		return nil, err
	}

	info := &adapter.ViewInfo{Name: view, Columns: columns}
	if definition.Valid {
		def := definition.String
		info.Definition = &def
	}
	return info, nil
}
