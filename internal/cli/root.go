// Package cli implements the admconsole command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	admsession "github.com/imoveisdeluxo/admsession"
)

// Environment variables read by the CLI.
const (
	EnvPassword      = "ADMCONSOLE_PASSWORD"
	EnvCredentialKey = "ADMCONSOLE_CREDENTIALS_KEY"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	APIURL     string
	GraphQLURL string
	Backend    string
	Dir        string
	Profile    string
	Verbose    bool
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the admconsole root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "admconsole",
		Short: "Imóveis de Luxo administrative console",
		Long:  "Sign in to the listing platform as an administrator and use its API from the terminal or a local web shell.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.APIURL, "api-url", "", "API base url (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.GraphQLURL, "graphql-url", "", "GraphQL endpoint (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "credential backend: memory|file|redis (default file)")
	cmd.PersistentFlags().StringVar(&opts.Dir, "credentials-dir", "", "directory for the file backend")
	cmd.PersistentFlags().StringVar(&opts.Profile, "profile", "", "credential profile name")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewSignInCommand(opts))
	cmd.AddCommand(NewSignOutCommand(opts))
	cmd.AddCommand(NewWhoAmICommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig reads the config file, if any, and applies flag overrides.
// Without a config file the CLI persists sessions in files, since every
// invocation is a new process.
func loadConfig(opts *RootOptions) (admsession.Config, error) {
	cfg := admsession.DefaultConfig()
	if opts.ConfigPath != "" {
		loaded, err := admsession.LoadConfigFile(opts.ConfigPath)
		if err != nil {
			return admsession.Config{}, err
		}
		cfg = loaded
	} else {
		cfg.Credentials.Backend = admsession.BackendFile
	}

	if opts.APIURL != "" {
		cfg.API.BaseURL = opts.APIURL
	}
	if opts.GraphQLURL != "" {
		cfg.API.GraphQLURL = opts.GraphQLURL
	}
	if opts.Backend != "" {
		cfg.Credentials.Backend = admsession.CredentialBackend(opts.Backend)
	}
	if opts.Dir != "" {
		cfg.Credentials.Dir = opts.Dir
	}
	if opts.Profile != "" {
		cfg.Credentials.Profile = opts.Profile
	}
	if key, ok := os.LookupEnv(EnvCredentialKey); ok && key != "" {
		cfg.Credentials.EncryptionKey = key
	}

	if err := cfg.Validate(); err != nil {
		return admsession.Config{}, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	var logger zerolog.Logger
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w})
	} else {
		logger = zerolog.New(w)
	}
	logger = logger.With().Timestamp().Logger()
	if verbose {
		return logger.Level(zerolog.DebugLevel)
	}
	return logger.Level(zerolog.WarnLevel)
}

// openConsole builds and starts a console for one command.
func openConsole(cmd *cobra.Command, opts *RootOptions, mutate func(*admsession.Config)) (*admsession.Console, admsession.Config, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, admsession.Config{}, err
	}
	if mutate != nil {
		mutate(&cfg)
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	console, err := admsession.New().
		WithConfig(cfg).
		WithLogger(logger).
		WithAuditSink(admsession.NewLogSink(logger)).
		Build()
	if err != nil {
		return nil, admsession.Config{}, err
	}

	res := console.Start(cmd.Context())
	if res.Err != nil {
		logger.Warn().Err(res.Err).Msg("starting signed out")
	}
	return console, cfg, nil
}
