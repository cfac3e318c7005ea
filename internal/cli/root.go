// Package cli implements the plantprofit command line.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"plantprofit/internal/config"
	"plantprofit/internal/logging"
)

var (
	appVersion = "dev"
	appCommit  = "none"
)

// app carries the state shared by every subcommand of one root command.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.AppConfig
}

// NewRootCmd builds the command tree. Flags and PLANTPROFIT_* environment
// variables override values from the config file.
func NewRootCmd() *cobra.Command {
	a := &app{v: newViper()}

	root := &cobra.Command{
		Use:           "plantprofit",
		Short:         "plantprofit: crop profit planning with a retrieval-backed advisor",
		Version:       fmt.Sprintf("%s (commit: %s)", appVersion, appCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (default ./config.yaml, then ~/.config/plantprofit/config.yaml)")
	pf.Bool("debug", false, "enable debug logging")
	pf.String("log-file", "", "also append logs to this file")
	pf.String("embedder", "", "embedder backend: tfidf or openai")
	pf.String("generator", "", "generator backend: extractive or openai")
	pf.String("store", "", "vector store backend: memory, qdrant or pgvector")

	_ = a.v.BindPFlag("debug", pf.Lookup("debug"))
	_ = a.v.BindPFlag("log_file", pf.Lookup("log-file"))
	_ = a.v.BindPFlag("embedder.type", pf.Lookup("embedder"))
	_ = a.v.BindPFlag("generator.type", pf.Lookup("generator"))
	_ = a.v.BindPFlag("vector_store.type", pf.Lookup("store"))

	root.AddCommand(
		newServeCmd(a),
		newIngestCmd(a),
		newAskCmd(a),
		newOptimizeCmd(a),
		newChatCmd(a),
	)
	return root
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("PLANTPROFIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	err := NewRootCmd().Execute()
	_ = logging.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// load reads .env and the config file, applies overrides and starts logging.
func (a *app) load() error {
	_ = godotenv.Load()

	var (
		cfg *config.AppConfig
		err error
	)
	if a.cfgFile == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(a.cfgFile)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyOverrides(cfg, a.v)
	a.cfg = cfg

	if err := logging.Init(cfg.LogFile, cfg.Debug); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func applyOverrides(cfg *config.AppConfig, v *viper.Viper) {
	if v.IsSet("debug") {
		cfg.Debug = v.GetBool("debug")
	}
	if v.IsSet("log_file") {
		cfg.LogFile = v.GetString("log_file")
	}
	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if s := v.GetString("embedder.type"); s != "" {
		cfg.Embedder.Type = s
	}
	if s := v.GetString("generator.type"); s != "" {
		cfg.Generator.Type = s
	}
	if s := v.GetString("vector_store.type"); s != "" {
		cfg.VectorStore.Type = s
	}
	config.ApplyDefaults(cfg)
}
