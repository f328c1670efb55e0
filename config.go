/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Seednode/scoreboard/broadcast"
	"github.com/Seednode/scoreboard/remote"
)

type Config struct {
	bind    string
	port    int
	prefix  string
	profile bool
	tlsCert string
	tlsKey  string
	verbose bool
	version bool

	memory bool

	githubOwner   string
	githubRepo    string
	githubPath    string
	githubToken   string
	githubAPIURL  string
	githubTimeout time.Duration

	committerName  string
	committerEmail string

	allowedOrigins []string

	natsURL     string
	natsSubject string
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.githubTimeout <= 0 {
		return fmt.Errorf("invalid github timeout (must be positive): %s", c.githubTimeout)
	}
	if c.githubAPIURL != "" {
		if _, err := url.Parse(c.githubAPIURL); err != nil {
			return fmt.Errorf("invalid github api url: %w", err)
		}
	}
	if c.natsURL != "" && c.natsSubject == "" {
		return errors.New("--nats-subject must not be empty when --nats-url is set")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) remote() remote.Config {
	return remote.Config{
		Owner:          c.githubOwner,
		Repo:           c.githubRepo,
		Path:           c.githubPath,
		Token:          c.githubToken,
		BaseURL:        c.githubAPIURL,
		CommitterName:  c.committerName,
		CommitterEmail: c.committerEmail,
		Timeout:        c.githubTimeout,
	}
}

func (c *Config) relay() broadcast.RelayConfig {
	cfg := broadcast.DefaultRelayConfig()
	cfg.URL = c.natsURL
	cfg.Subject = c.natsSubject

	return cfg
}

// bindEnv applies SCOREBOARD_* environment values to every flag not set on
// the command line.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func normalizeFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("SCOREBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return v
}

func newCmd(cfg *Config) *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:           "scoreboard",
		Short:         "A shared real-time scoreboard, persisted to a file in a GitHub repository.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cfg.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg)
		},
	}

	pfs := cmd.PersistentFlags()
	normalizeFlags(pfs)
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SCOREBOARD_VERBOSE)")

	fs := cmd.Flags()
	normalizeFlags(fs)

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: SCOREBOARD_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 3000, "port to listen on (env: SCOREBOARD_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: SCOREBOARD_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: SCOREBOARD_PROFILE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: SCOREBOARD_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: SCOREBOARD_TLS_KEY)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: SCOREBOARD_VERSION)")
	fs.BoolVar(&cfg.memory, "memory", false, "keep the document in memory instead of GitHub, for local development (env: SCOREBOARD_MEMORY)")
	fs.StringVar(&cfg.githubOwner, "github-owner", "", "owner of the repository holding the document (env: SCOREBOARD_GITHUB_OWNER)")
	fs.StringVar(&cfg.githubRepo, "github-repo", "", "repository holding the document (env: SCOREBOARD_GITHUB_REPO)")
	fs.StringVar(&cfg.githubPath, "github-path", "", "path of the document within the repository (env: SCOREBOARD_GITHUB_PATH)")
	fs.StringVar(&cfg.githubToken, "github-token", "", "token used to read and commit the document (env: SCOREBOARD_GITHUB_TOKEN)")
	fs.StringVar(&cfg.githubAPIURL, "github-api-url", "", "alternate GitHub API base URL, e.g. for GitHub Enterprise (env: SCOREBOARD_GITHUB_API_URL)")
	fs.DurationVar(&cfg.githubTimeout, "github-timeout", 15*time.Second, "timeout for each GitHub API request (env: SCOREBOARD_GITHUB_TIMEOUT)")
	fs.StringVar(&cfg.committerName, "committer-name", "Score Tracker Bot", "name recorded on document commits (env: SCOREBOARD_COMMITTER_NAME)")
	fs.StringVar(&cfg.committerEmail, "committer-email", "no-reply@example.com", "email recorded on document commits (env: SCOREBOARD_COMMITTER_EMAIL)")
	fs.StringSliceVar(&cfg.allowedOrigins, "allowed-origins", []string{"*"}, "origins allowed to connect (env: SCOREBOARD_ALLOWED_ORIGINS)")
	fs.StringVar(&cfg.natsURL, "nats-url", "", "NATS server used to share updates between instances (env: SCOREBOARD_NATS_URL)")
	fs.StringVar(&cfg.natsSubject, "nats-subject", broadcast.DefaultRelayConfig().Subject, "NATS subject for shared updates (env: SCOREBOARD_NATS_SUBJECT)")

	bindEnv(v, pfs)
	bindEnv(v, fs)

	cmd.AddCommand(newWatchCmd(v))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("scoreboard v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
