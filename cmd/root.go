// Package cmd is the katapult command line.
package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/km-arc/katapult/app"
	"github.com/km-arc/katapult/db"
	kapp "github.com/km-arc/katapult/framework/app"
	"github.com/km-arc/katapult/framework/config"
	"github.com/km-arc/katapult/framework/container"
	"github.com/km-arc/katapult/framework/log"
)

var version = "dev"

// SetVersion sets the string printed by --version.
func SetVersion(v string) { version = v }

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// flagKeys maps each flag to the config key it sets.
var flagKeys = map[string]string{
	"http-port":       "http.port",
	"https-port":      "http.https_port",
	"data-dir":        "data_dir",
	"session-files":   "session.files",
	"session-timeout": "session.timeout_seconds",
	"db":              "db.driver",
	"db-file":         "db.file",
	"db-host":         "db.host",
	"db-name":         "db.name",
	"db-user":         "db.user",
	"db-pass":         "db.pass",
}

// NewRootCmd builds the katapult command tree. Each call gets its own viper
// instance.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           "katapult",
		Short:         "A modular web application server",
		Long:          `katapult resolves its modules from the configuration, then serves HTTP and HTTPS until interrupted.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd, v, cfgFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (yaml)")
	flags.Int("http-port", 80, "HTTP port, 0 disables")
	flags.Int("https-port", 443, "HTTPS port, 0 disables")
	flags.String("data-dir", "data", "directory for certificates, sessions and the sqlite database")
	flags.Bool("session-files", false, "keep sessions in files under the data dir")
	flags.Int("session-timeout", 0, "session timeout in seconds, 0 for browser sessions")
	flags.String("db", "sqlite", "database driver (sqlite|postgres)")
	flags.String("db-file", "katapult.db", "sqlite database file, relative to the data dir")
	flags.String("db-host", "", "postgres host")
	flags.String("db-name", "", "postgres database name")
	flags.String("db-user", "", "postgres user")
	flags.String("db-pass", "", "postgres password")
	bindFlags(v, flags)

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the server (default)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd, v, cfgFile)
			},
		},
		&cobra.Command{
			Use:   "routes",
			Short: "Print the module resolution order and the routes",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return routes(cmd, v, cfgFile)
			},
		},
	)
	return root
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for name, key := range flagKeys {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
}

// setup loads the configuration and the logger, then bootstraps the kernel.
func setup(v *viper.Viper, cfgFile string) (*kapp.Katapult, *zap.Logger, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, err
	}
	logger, err := log.New(log.Options{Env: cfg.App.Env, Debug: cfg.App.Debug, Level: cfg.App.LogLevel})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	k, err := app.Bootstrap(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return k, logger, nil
}

func serve(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	k, logger, err := setup(v, cfgFile)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return k.Run(ctx)
}

func routes(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	k, _, err := setup(v, cfgFile)
	if err != nil {
		return err
	}
	if err := k.Prepare(); err != nil {
		return err
	}
	defer closeDB(k)
	return printRoutes(cmd.OutOrStdout(), k)
}

func printRoutes(w io.Writer, k *kapp.Katapult) error {
	if _, err := fmt.Fprintln(w, "Modules:"); err != nil {
		return err
	}
	for i, t := range k.Order() {
		fmt.Fprintf(w, "  %2d. %s\n", i+1, container.TypeName(t))
	}
	fmt.Fprintln(w, "Routes:")
	for _, r := range k.Router().Routes() {
		fmt.Fprintf(w, "  %-7s %s\n", r.Method, r.Pattern)
	}
	return nil
}

// closeDB releases the database when the kernel never started.
func closeDB(k *kapp.Katapult) {
	if d, ok := container.Get[*db.DB](k.Group()); ok {
		_ = d.Close()
	}
}
