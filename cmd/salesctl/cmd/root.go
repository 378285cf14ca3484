package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/diewo77/sales-portal/internal/config"
	"github.com/diewo77/sales-portal/internal/db"
	"github.com/diewo77/sales-portal/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "salesctl",
	Short: "salesctl administers the sales portal database",
	Long: `salesctl runs maintenance tasks against the sales portal database.

Common workflows:

  Create the schema and the demo data:
    salesctl migrate
    salesctl seed

  Import a product catalogue with prices:
    salesctl import-products --file produtos.csv --table Default

  Run a synchronization job in the foreground:
    salesctl jobs launch --type sankhya_demo

Configuration:
  Keys are read from --config, then $HOME/.salesctl.yaml, then SALES_*
  environment variables (SALES_DATABASE_DRIVER, SALES_DATABASE_HOST, ...).
  The server's own variables (DB_DRIVER, DB_HOST, ...) are the defaults.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.salesctl.yaml)")
}

func initConfig() {
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(".salesctl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SALES")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig starts from the environment defaults of the server and
// overlays whatever viper knows.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg := config.Load()
	setDefaults(v, cfg)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it during
// Unmarshal.
func setDefaults(v *viper.Viper, cfg *config.Config) {
	defaults := map[string]any{
		"database.driver":       cfg.Database.Driver,
		"database.host":         cfg.Database.Host,
		"database.port":         cfg.Database.Port,
		"database.user":         cfg.Database.User,
		"database.password":     cfg.Database.Password,
		"database.name":         cfg.Database.DBName,
		"database.sslmode":      cfg.Database.SSLMode,
		"database.sqlite_path":  cfg.Database.SQLitePath,
		"database.debug":        cfg.Database.Debug,
		"app.sql_migrations":    cfg.App.SQLMigrations,
		"log.level":             cfg.Log.Level,
		"log.env":               cfg.Log.Environment,
		"pricing.default_table": cfg.Pricing.DefaultTable,
		"jobs.workers":          cfg.Jobs.Workers,
		"jobs.queue_size":       cfg.Jobs.QueueSize,
		"jobs.step_delay":       cfg.Jobs.StepDelay,
		"orders.node_id":        cfg.Orders.NodeID,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// env bundles what every command needs.
type env struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

func openEnv() (*env, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	log, err := logger.Init(logger.LogConfig{Level: cfg.Log.Level, Environment: cfg.Log.Environment, ServiceName: "salesctl"})
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &env{cfg: cfg, log: log, db: conn}, nil
}

func (e *env) close() {
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = e.log.Sync()
}
