package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/dbplane/dbplane/internal/config"
	"github.com/dbplane/dbplane/internal/engine"
	"github.com/dbplane/dbplane/internal/engine/mysql"
	"github.com/dbplane/dbplane/internal/engine/postgres"
	"github.com/dbplane/dbplane/internal/engine/sqlite"
	"github.com/dbplane/dbplane/pkg/adapter"
	"github.com/dbplane/dbplane/pkg/logger"
)

var (
	version = "0.1.0"
	// Build information variables
	GitCommit = "unknown"
	BuildTime = "unknown"

	verbose bool
	quiet   bool

	log *logger.Logger
)

// printVersionInfo displays detailed version information
func printVersionInfo() {
	fmt.Printf("dbplane v%s (build %s)\n", version, GitCommit)
	fmt.Printf("Built: %s\n", BuildTime)
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dbplane",
	Short: "Least-privilege execution plane for relational databases",
	Long: "dbplane runs read-only SQL and schema introspection against PostgreSQL, MySQL, and SQLite. " +
		"Statements are classified lexically before any connection is made; writes and DDL never reach the database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Lookup("version").Changed {
			printVersionInfo()
			return nil
		}
		return cmd.Help()
	},
}

// buildRegistry wires every engine adapter.
func buildRegistry() *adapter.Registry {
	dl := engine.NewDatabaseLogger(log)
	registry := adapter.NewRegistry()
	registry.Register(postgres.NewAdapter(dl))
	registry.Register(mysql.NewAdapter(dl))
	registry.Register(sqlite.NewAdapter(dl))
	return registry
}

// buildStore opens the profile store.
func buildStore() (*config.Store, error) {
	return config.NewStore(log)
}

func init() {
	log = logger.New("dbplane")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all logging below errors")
	rootCmd.Flags().Bool("version", false, "Show version information and exit")

	cobra.OnInitialize(func() {
		if verbose {
			log.SetLevel("DEBUG")
		}
		if quiet {
			log.SetQuiet(true)
		}
	})

	setupCommands()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
