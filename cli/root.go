// Package cli implements the relations command: it loads a catalog of entity types and
// named queries, then prints the compiled statement or the fetched records.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/relations"
	"gorm.io/relations/internal/catalog"
)

// EnvPrefix prefix of the environment variables overriding the config file
const EnvPrefix = "RELATIONS"

// NewRootCommand creates the relations command with its own configuration
func NewRootCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "relations",
		Short: "Fetch joined records described by a catalog",
		Long: `relations loads entity types and named queries from a YAML catalog.
It prints the SQL a query compiles to, or runs it and prints the joined records as JSON.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return readConfig(v, cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file (default ./relations.yaml)")
	flags.String("catalog", "", "catalog file declaring entity types and queries")
	flags.StringP("query", "q", "", "name of the catalog query")
	flags.String("dialect", "sqlite", "database dialect: sqlite or postgres")
	flags.String("dsn", "", "database connection string")
	flags.String("log-level", "warn", "log level: silent, error, warn or info")
	flags.String("log-format", "text", "log format: text, zerolog, logrus, zap or slog")
	flags.Duration("slow-threshold", 0, "log queries slower than this at warn level")
	flags.Bool("prepare-stmt", false, "cache prepared statements")

	for _, name := range []string{"catalog", "query", "dialect", "dsn", "log-level", "log-format", "slow-threshold", "prepare-stmt"} {
		if err := v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	cmd.AddCommand(newFetchCommand(v), newSQLCommand(v))
	return cmd
}

// Execute runs the relations command with os.Args
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func readConfig(v *viper.Viper, cmd *cobra.Command) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("relations")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// session the database and catalog a command runs against
type session struct {
	db      *relations.DB
	catalog *catalog.Catalog
	query   *relations.Query
}

func openSession(v *viper.Viper, cmd *cobra.Command, args []string) (*session, error) {
	config, err := loadConfig(v)
	if err != nil {
		return nil, err
	}

	name := config.Query
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		return nil, fmt.Errorf("query name required, pass it as argument or set --query")
	}

	db, err := config.openDB(cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &session{db: db}
	if s.catalog, err = catalog.Load(config.Catalog, db.NamingStrategy); err != nil {
		s.Close()
		return nil, err
	}

	if s.query, err = s.catalog.Query(db, name); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
