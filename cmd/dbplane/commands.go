package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbplane/dbplane/internal/config"
	"github.com/dbplane/dbplane/internal/mcp"
	"github.com/dbplane/dbplane/internal/output"
	"github.com/dbplane/dbplane/pkg/adapter"
	"github.com/dbplane/dbplane/pkg/dbcapabilities"
)

var (
	flagEngine      string
	flagHost        string
	flagPort        int
	flagUser        string
	flagDatabase    string
	flagFile        string
	flagPasswordEnv string

	flagProfileName string
	flagGlobal      bool
	flagSetCurrent  bool

	flagConnection string
	flagTable      string
	flagView       string
	flagSchema     string
	flagFields     []string

	flagMaxRows int
	flagTimeout int
)

// emit writes the envelope to stdout and exits non-zero on failure.
func emit(envelope interface{}, failed bool) error {
	if err := output.Write(os.Stdout, envelope); err != nil {
		return err
	}
	if failed {
		os.Exit(1)
	}
	return nil
}

// explicitConfig builds a descriptor from the connection flags, reading the
// password from the named environment variable.
func explicitConfig() (adapter.ConnectionConfig, error) {
	eng, ok := dbcapabilities.ParseEngine(flagEngine)
	if !ok {
		return adapter.ConnectionConfig{}, adapter.NewConfigurationError(dbcapabilities.Engine(flagEngine), "engine",
			fmt.Sprintf("unknown engine '%s'", flagEngine))
	}
	profile := config.Profile{
		Engine:      eng,
		Host:        flagHost,
		Port:        flagPort,
		User:        flagUser,
		Database:    flagDatabase,
		FilePath:    flagFile,
		PasswordEnv: flagPasswordEnv,
	}
	return profile.Resolve()
}

// resolveConfig picks the connection for introspect/query: explicit engine
// flags, a named profile, or the current profile.
func resolveConfig(store *config.Store) (adapter.ConnectionConfig, error) {
	if flagEngine != "" {
		return explicitConfig()
	}
	var profile config.Profile
	var err error
	if flagConnection != "" {
		profile, err = store.Lookup(flagConnection)
	} else {
		_, profile, err = store.LoadCurrent()
	}
	if err != nil {
		return adapter.ConnectionConfig{}, err
	}
	return profile.Resolve()
}

func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagEngine, "engine", "", "Database engine (postgres, mysql, sqlite)")
	cmd.Flags().StringVar(&flagHost, "host", "", "Server host")
	cmd.Flags().IntVar(&flagPort, "port", 0, "Server port (engine default when omitted)")
	cmd.Flags().StringVar(&flagUser, "user", "", "Database user")
	cmd.Flags().StringVar(&flagDatabase, "database", "", "Database name")
	cmd.Flags().StringVar(&flagFile, "file", "", "Database file path (sqlite)")
	cmd.Flags().StringVar(&flagPasswordEnv, "password-env", "", "Environment variable holding the password")
}

// connectCmd validates a connection and saves it as a named profile.
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Validate a connection and save it as a named profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := buildStore()
		if err != nil {
			return emit(output.Failure("", "connect", err), true)
		}
		if flagEngine == "" {
			err := adapter.NewConfigurationError("", "engine", "connect requires --engine")
			return emit(output.Failure("", "connect", err), true)
		}
		cfg, err := explicitConfig()
		if err != nil {
			return emit(output.Failure(cfg.Engine, "connect", err), true)
		}

		info, err := buildRegistry().ValidateConnection(context.Background(), cfg)
		if err != nil {
			return emit(output.Failure(cfg.Engine, "connect", err), true)
		}

		if flagProfileName != "" {
			profile := config.Profile{
				Engine:      cfg.Engine,
				Host:        cfg.Host,
				Port:        cfg.Port,
				User:        cfg.User,
				Database:    cfg.Database,
				FilePath:    cfg.FilePath,
				PasswordEnv: flagPasswordEnv,
			}
			if err := store.Save(flagProfileName, profile, flagGlobal, flagSetCurrent); err != nil {
				return emit(output.Failure(cfg.Engine, "connect", err), true)
			}
		}

		return emit(output.Success(cfg.Engine, "connect", info, nil), false)
	},
}

// introspectCmd performs one catalog operation.
var introspectCmd = &cobra.Command{
	Use:   "introspect <operation>",
	Short: "Inspect the database catalog",
	Long: "Run one catalog operation: list_tables, list_views, list_schemas, list_databases, " +
		"list_indexes, table_details, or view_details.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := buildStore()
		if err != nil {
			return emit(output.Failure("", "introspect", err), true)
		}
		cfg, err := resolveConfig(store)
		if err != nil {
			return emit(output.Failure(cfg.Engine, "introspect", err), true)
		}

		op, ok := adapter.ParseIntrospectOp(args[0])
		if !ok {
			err := adapter.NewInvalidInput(cfg.Engine, "introspect",
				fmt.Sprintf("unknown introspect operation '%s'", args[0]))
			return emit(output.Failure(cfg.Engine, "introspect", err), true)
		}

		req := adapter.IntrospectRequest{
			Op:     op,
			Table:  flagTable,
			View:   flagView,
			Schema: flagSchema,
		}
		// --database targets another database than the connected one when
		// the connection comes from a saved profile.
		if flagDatabase != "" && flagDatabase != cfg.Database {
			req.Database = flagDatabase
		}
		if len(flagFields) > 0 {
			fields, err := mcp.ParseFields(flagFields)
			if err != nil {
				return emit(output.Failure(cfg.Engine, "introspect", err), true)
			}
			req.Fields = &fields
		}

		start := time.Now()
		result, err := buildRegistry().Introspect(context.Background(), cfg, req)
		if err != nil {
			return emit(output.Failure(cfg.Engine, "introspect", err), true)
		}
		meta := &output.Meta{ExecutionMS: time.Since(start).Milliseconds()}
		return emit(output.Success(cfg.Engine, "introspect", result, meta), false)
	},
}

// queryCmd executes one read-only statement.
var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Execute one read-only SQL statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := buildStore()
		if err != nil {
			return emit(output.Failure("", "query", err), true)
		}
		cfg, err := resolveConfig(store)
		if err != nil {
			return emit(output.Failure(cfg.Engine, "query", err), true)
		}

		caps := adapter.Capabilities{
			MaxRows: flagMaxRows,
			Timeout: time.Duration(flagTimeout) * time.Second,
		}
		result, err := buildRegistry().Execute(context.Background(), cfg, args[0], caps)
		if err != nil {
			return emit(output.Failure(cfg.Engine, "query", err), true)
		}
		return emit(output.Success(cfg.Engine, "query", result, output.QueryMeta(result)), false)
	},
}

// mcpCmd serves the tools over stdio.
var mcpCmd = &cobra.Command{
	Use:    "mcp",
	Short:  "Serve dbplane tools over stdio",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := buildStore()
		if err != nil {
			return err
		}
		server := mcp.NewServer(buildRegistry(), store, log, version, os.Stdin, os.Stdout)
		return server.Serve(context.Background())
	},
}

func setupCommands() {
	addConnectionFlags(connectCmd)
	connectCmd.Flags().StringVar(&flagProfileName, "name", "", "Save the connection under this name")
	connectCmd.Flags().BoolVar(&flagGlobal, "global", false, "Save to the global registry")
	connectCmd.Flags().BoolVar(&flagSetCurrent, "set-current", false, "Make this the current connection")

	addConnectionFlags(introspectCmd)
	introspectCmd.Flags().StringVar(&flagConnection, "connection", "", "Use a saved connection by name")
	introspectCmd.Flags().StringVar(&flagTable, "table", "", "Table name for table_details and index listings")
	introspectCmd.Flags().StringVar(&flagView, "view", "", "View name for view_details")
	introspectCmd.Flags().StringVar(&flagSchema, "schema", "", "Schema filter")
	introspectCmd.Flags().StringSliceVar(&flagFields, "fields", nil, "Sections of table_details to return")

	addConnectionFlags(queryCmd)
	queryCmd.Flags().StringVar(&flagConnection, "connection", "", "Use a saved connection by name")
	queryCmd.Flags().IntVar(&flagMaxRows, "max-rows", 0, "Row cap for the result set")
	queryCmd.Flags().IntVar(&flagTimeout, "timeout", 0, "Statement timeout in seconds")

	rootCmd.AddCommand(connectCmd, introspectCmd, queryCmd, mcpCmd)
}
