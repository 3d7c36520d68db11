package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/btraven00/plagcheck/internal/config"
	"github.com/btraven00/plagcheck/internal/logging"
	"github.com/btraven00/plagcheck/internal/status"
)

var (
	cfgFile  string
	quiet    bool
	output   string
	logLevel string

	// v holds defaults, the config file, PLAGCHECK_* variables and bound flags.
	v = config.NewViper()
	// configErr is set when an explicitly requested config file cannot be read.
	configErr error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "plagcheck",
	Short: "A CLI tool for checking documents against web sources for plagiarism",
	Long: `Plagcheck extracts the text of a document (PDF, image or text),
collects candidate sources from its declared reference URLs and a scholarly
search, fetches and cleans those sources and scores the document against
each of them with TF-IDF cosine similarity.

The result is an aggregate similarity percentage, the passages of every
source above the flagging threshold and an original/plagiarized split.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.plagcheck.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "quiet output (suppress status messages)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "human", "output format (human, json, yaml, csv)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cobra.CheckErr(v.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output")))
	cobra.CheckErr(v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")))
}

// initConfig reads .env, the config file and ENV variables if set.
func initConfig() {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}

		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(".plagcheck")
	}

	err := v.ReadInConfig()

	var notFound viper.ConfigFileNotFoundError

	switch {
	case err == nil:
		if !quiet {
			fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
		}
	case cfgFile != "" || !errors.As(err, &notFound):
		configErr = fmt.Errorf("failed to read config file: %w", err)
	}
}

// bindFlags binds the named local flags of cmd to configuration keys. Flags
// are bound when the command runs so that commands sharing a key do not
// override each other.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for name, key := range keys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown flag %q", name)
		}

		if err := v.BindPFlag(key, flag); err != nil {
			return err
		}
	}

	return nil
}

// session is what every command needs to do its work.
type session struct {
	logger   *zap.Logger
	reporter status.Reporter
	runID    string
	cfg      config.Config
}

// setup loads the configuration and builds the logger and status reporter.
// Status lines go to stderr so that stdout carries only the result.
func setup(cmd *cobra.Command, keys map[string]string) (*session, error) {
	if configErr != nil {
		return nil, configErr
	}

	if err := bindFlags(cmd, keys); err != nil {
		return nil, err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	logger, runID := logging.WithRun(logger)

	return &session{
		cfg:      cfg,
		logger:   logger,
		reporter: newReporter(cmd.ErrOrStderr()),
		runID:    runID,
	}, nil
}

func newReporter(w io.Writer) status.Reporter {
	if quiet {
		return status.Discard
	}

	return status.NewWriter(w)
}
