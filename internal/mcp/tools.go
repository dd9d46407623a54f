package mcp

// connectionProperties is the schema fragment shared by every tool: a saved
// profile name or an explicit engine plus its fields.
func connectionProperties() map[string]interface{} {
	return map[string]interface{}{
		"name": map[string]interface{}{
			"type":        "string",
			"description": "Saved connection name. Either this or 'engine' is required.",
		},
		"engine": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"postgres", "mysql", "sqlite"},
			"description": "Database engine for an explicit connection.",
		},
		"host":     map[string]interface{}{"type": "string"},
		"port":     map[string]interface{}{"type": "integer"},
		"user":     map[string]interface{}{"type": "string"},
		"database": map[string]interface{}{"type": "string"},
		"file": map[string]interface{}{
			"type":        "string",
			"description": "Database file path (sqlite only).",
		},
		"password_env": map[string]interface{}{
			"type":        "string",
			"description": "Environment variable holding the password. The password itself is never accepted.",
		},
	}
}

func toolList() []Tool {
	connectProps := connectionProperties()
	connectProps["save_as"] = map[string]interface{}{
		"type":        "string",
		"description": "Save the validated connection under this name.",
	}
	connectProps["global"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Save to the global registry instead of the project-local one.",
	}
	connectProps["set_current"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Make this the current connection.",
	}

	introspectProps := connectionProperties()
	introspectProps["op"] = map[string]interface{}{
		"type": "string",
		"enum": []string{
			"list_tables", "list_views", "list_schemas", "list_databases",
			"list_indexes", "table_details", "view_details",
		},
	}
	introspectProps["table"] = map[string]interface{}{"type": "string"}
	introspectProps["view"] = map[string]interface{}{"type": "string"}
	introspectProps["schema"] = map[string]interface{}{"type": "string"}
	introspectProps["fields"] = map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": "Sections of table_details to return: columns, primary_key, foreign_keys, indexes.",
	}

	queryProps := connectionProperties()
	queryProps["sql"] = map[string]interface{}{
		"type":        "string",
		"description": "One read-only SQL statement.",
	}
	queryProps["max_rows"] = map[string]interface{}{"type": "integer"}
	queryProps["timeout_seconds"] = map[string]interface{}{"type": "integer"}

	return []Tool{
		{
			Name:        "connect",
			Description: "Validate a database connection and optionally save it as a named profile.",
			InputSchema: map[string]interface{}{"type": "object", "properties": connectProps},
		},
		{
			Name:        "introspect",
			Description: "Inspect the database catalog: tables, views, schemas, databases, indexes, and per-object details.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": introspectProps,
				"required":   []string{"op"},
			},
		},
		{
			Name:        "query",
			Description: "Execute one read-only SQL statement. Writes and DDL are rejected before any connection is made.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": queryProps,
				"required":   []string{"sql"},
			},
		},
	}
}
