package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gyeh/cbgtariff/internal/config"
	"github.com/gyeh/cbgtariff/internal/logging"
)

var (
	cfg = config.Default()
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:               "cbgtariff",
	Short:             "Case-based grouping resolver and tariff lookup",
	Long:              "Resolves claims to CMG-CaseType-Specific-Severity grouping codes from case history and prices them against the Tariff Master.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", "", "Postgres connection string (or set CBG_DB_URL)")
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	pf.StringVar(&cfg.ConfigPath, "config", "", "Optional YAML config file")
	pf.StringVar(&cfg.ReferenceMode, "reference-mode", cfg.ReferenceMode, "Reference source: snapshot, postgres or direct")
	pf.StringVar(&cfg.ReferenceDir, "reference-dir", "", "Directory holding the reference Parquet files (snapshot mode)")
	pf.Int64Var(&cfg.MinDiagnosisCases, "min-diagnosis-cases", cfg.MinDiagnosisCases, "Case history a diagnosis needs before diagnosis-only matching applies")
}

// setup loads .env, the optional config file and the logger. Flags given on
// the command line win over the config file.
func setup(cmd *cobra.Command, args []string) error {
	// A missing .env is normal outside development.
	_ = godotenv.Load()
	if cfg.DSN == "" {
		cfg.DSN = os.Getenv("CBG_DB_URL")
	}

	if cfg.ConfigPath != "" {
		flagged := cfg
		if err := cfg.LoadFromFile(cfg.ConfigPath); err != nil {
			return err
		}
		cmd.Flags().Visit(func(f *pflag.Flag) {
			switch f.Name {
			case "reference-mode":
				cfg.ReferenceMode = flagged.ReferenceMode
			case "reference-dir":
				cfg.ReferenceDir = flagged.ReferenceDir
			case "min-diagnosis-cases":
				cfg.MinDiagnosisCases = flagged.MinDiagnosisCases
			case "listen":
				cfg.ListenAddr = flagged.ListenAddr
			case "workers":
				cfg.Workers = flagged.Workers
			}
		})
	}

	log = logging.Setup(cfg.LogFormat, cfg.LogLevel)
	return nil
}
