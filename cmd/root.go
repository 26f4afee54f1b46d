package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"steadydb/internal/banner"
	"steadydb/internal/cli"
	"steadydb/internal/db"
	"steadydb/internal/metrics"
	"steadydb/internal/runner"
	"steadydb/internal/storage"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "steadydb",
	Short: "SteadyDB - steady-rate MySQL load generator",
	Long: `
SteadyDB drives a fixed number of concurrent workers against a MySQL database,
each issuing queries at a bounded rate, and reports throughput and latency.

Every flag can also be set in the config file or through STEADYDB_* environment
variables (e.g. STEADYDB_QPS=500, STEADYDB_CONNECT_TIMEOUT=5s).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
			return err
		}
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		return setupLogging(viper.GetString("log-level"))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMySQL(cmd)
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the active run,
// which still prints its partial report.
func Execute() {
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), banner.String())
		cmd.Usage()
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.steadydb.yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	pf.String("host", "localhost", "MySQL host")
	pf.Int("port", 3306, "MySQL port")
	pf.String("user", "root", "MySQL user")
	pf.String("password", "rootpass", "MySQL password")
	pf.String("database", "bank_db", "MySQL database")
	pf.String("table", db.DefaultTable, "table queried by the default workload")
	pf.Duration("connect-timeout", 5*time.Second, "timeout for establishing a connection")

	addRunFlags(rootCmd.Flags())
	rootCmd.Flags().Int("max-open-conns", 0, "connection pool size (0 = one per thread)")
	rootCmd.Flags().String("queries", "", "file with one SQL query template per line (default: bank transactions workload)")
}

// addRunFlags registers the flags shared by every command that runs a load test.
func addRunFlags(fs *pflag.FlagSet) {
	fs.Int("duration", 600, "test duration in seconds")
	fs.Int("qps", 1000, "target queries per second across all threads")
	fs.Int("threads", 50, "number of concurrent workers")
	fs.Duration("query-timeout", 30*time.Second, "upper bound for a single query (0 = none)")
	fs.StringP("out", "o", "", "output filename prefix for CSV/JSON reports")
	fs.Bool("tui", false, "show the interactive dashboard instead of progress lines")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address during the run (e.g. :9090)")
	fs.Bool("no-history", false, "do not record the run in the history database")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".steadydb")
	}

	viper.SetEnvPrefix("steadydb")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logrus.WithField("file", viper.ConfigFileUsed()).Debug("using config file")
	} else if cfgFile != "" {
		logrus.WithError(err).Warn("could not read config file")
	}
}

func setupLogging(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

func runConfig() runner.Config {
	return runner.Config{
		Duration:     time.Duration(viper.GetInt("duration")) * time.Second,
		TargetQPS:    viper.GetInt("qps"),
		Workers:      viper.GetInt("threads"),
		QueryTimeout: viper.GetDuration("query-timeout"),
	}
}

func dbConfig() db.Config {
	cfg := db.Config{
		Host:           viper.GetString("host"),
		Port:           viper.GetInt("port"),
		User:           viper.GetString("user"),
		Password:       viper.GetString("password"),
		Database:       viper.GetString("database"),
		Table:          viper.GetString("table"),
		ConnectTimeout: viper.GetDuration("connect-timeout"),
		MaxOpenConns:   viper.GetInt("max-open-conns"),
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = viper.GetInt("threads")
	}
	return cfg
}

func runMySQL(cmd *cobra.Command) error {
	dbCfg := dbConfig()

	queries, err := loadQueries(viper.GetString("queries"), dbCfg.Table)
	if err != nil {
		return err
	}
	catalog, err := db.NewCatalog(queries)
	if err != nil {
		return err
	}

	pool, err := db.Open(dbCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	return runLoad(cmd, db.NewConnector(pool), db.NewExecutor(catalog), dbCfg.Target())
}

func loadQueries(path, table string) ([]string, error) {
	if path == "" {
		return db.DefaultQueries(table)
	}
	return db.LoadQueries(path)
}

// runLoad wires metrics and history around one run against any backend.
func runLoad(cmd *cobra.Command, connector runner.Connector, executor runner.Executor, target string) error {
	ctx := cmd.Context()
	cfg := runConfig()
	log := logrus.StandardLogger()

	opts := []runner.Option{runner.WithLogger(log)}
	if addr := viper.GetString("metrics-addr"); addr != "" {
		rec := metrics.NewRecorder()
		rec.SetWorkers(cfg.Workers)

		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		rec.Serve(metricsCtx, addr, log)
		opts = append(opts, runner.WithObserver(rec))
	}

	history := openHistory(log)
	if history != nil {
		defer history.Close()
	}

	_, err := cli.Start(ctx, runner.NewRunner(connector, executor, opts...), cfg, cmd.OutOrStdout(), cli.Options{
		Target:    target,
		OutPrefix: viper.GetString("out"),
		TUI:       viper.GetBool("tui"),
		History:   history,
		Log:       log,
	})
	return err
}

// openHistory returns nil when history is disabled or unavailable.
func openHistory(log logrus.FieldLogger) *storage.Store {
	if viper.GetBool("no-history") {
		return nil
	}

	path, err := storage.DefaultPath()
	if err != nil {
		log.WithError(err).Warn("run history disabled")
		return nil
	}
	store, err := storage.Open(path)
	if err != nil {
		log.WithError(err).Warn("run history disabled")
		return nil
	}
	return store
}
