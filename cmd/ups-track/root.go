package main

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/BearBump/upstrack/config"
	"github.com/BearBump/upstrack/internal/integrations/carrier/ups"
	"github.com/BearBump/upstrack/internal/logging"
)

type rootOptions struct {
	configPath   string
	clientID     string
	clientSecret string
	merchantID   string
	token        string
	sandbox      bool
	locale       string
	milestones   bool
	signature    bool
	baseURL      string
	timeout      time.Duration
	jsonOut      bool
	verbose      bool
}

// settings is the merged view of config file, environment and flags.
type settings struct {
	ups     config.UPSConfig
	env     ups.Environment
	token   string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "ups-track",
		Short: "Query the UPS Tracking API",
		Long: `ups-track obtains OAuth tokens and tracks UPS inquiry numbers.

Credentials come from --config (or the configPath env var), then from
UPS_CLIENT_ID, UPS_CLIENT_SECRET, UPS_ACCOUNT_NUMBER and UPS_ENVIRONMENT,
then from flags.

Examples:
  ups-track token --sandbox
  ups-track track 1Z023E2X0214323462 --sandbox
  ups-track classify 005 011 X`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), config.LoggingConfig{Level: level}))
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", os.Getenv("configPath"), "path to a YAML config with an ups section")
	f.StringVar(&opts.clientID, "client-id", "", "UPS OAuth client id")
	f.StringVar(&opts.clientSecret, "client-secret", "", "UPS OAuth client secret")
	f.StringVar(&opts.merchantID, "merchant-id", "", "UPS account number sent as x-merchant-id")
	f.StringVar(&opts.token, "token", "", "bearer token to use instead of obtaining one")
	f.BoolVar(&opts.sandbox, "sandbox", false, "use the UPS sandbox (CIE) environment")
	f.StringVar(&opts.locale, "locale", "", "response locale (default en_US)")
	f.BoolVar(&opts.milestones, "milestones", false, "ask UPS to return milestones")
	f.BoolVar(&opts.signature, "signature", false, "ask UPS to return the signature image")
	f.StringVar(&opts.baseURL, "base-url", "", "override the API base URL")
	f.DurationVar(&opts.timeout, "timeout", 0, "HTTP timeout (default 10s)")
	f.BoolVar(&opts.jsonOut, "json", false, "print raw JSON")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log requests to stderr")

	cmd.AddCommand(tokenCmd(opts))
	cmd.AddCommand(trackCmd(opts))
	cmd.AddCommand(classifyCmd(opts))

	return cmd
}

func (o *rootOptions) resolve() (settings, error) {
	cfg := &config.Config{}
	if o.configPath != "" {
		loaded, err := config.LoadConfig(o.configPath)
		if err != nil {
			return settings{}, err
		}
		cfg = loaded
	} else {
		cfg.ApplyEnv(os.LookupEnv)
	}

	u := cfg.UPS
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&u.ClientID, o.clientID)
	override(&u.ClientSecret, o.clientSecret)
	override(&u.MerchantID, o.merchantID)
	override(&u.Locale, o.locale)
	if o.sandbox {
		u.Environment = string(ups.EnvironmentSandbox)
	}
	if o.baseURL != "" {
		u.ProductionBaseURL, u.SandboxBaseURL = o.baseURL, o.baseURL
	}
	u.ReturnMilestones = u.ReturnMilestones || o.milestones
	u.ReturnSignature = u.ReturnSignature || o.signature

	env, err := ups.ParseEnvironment(u.Environment)
	if err != nil {
		return settings{}, err
	}

	timeout := o.timeout
	if timeout <= 0 {
		timeout = time.Duration(u.TimeoutSeconds) * time.Second
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return settings{ups: u, env: env, token: o.token, timeout: timeout}, nil
}

func (s settings) client() *ups.Client {
	return ups.New(&http.Client{Timeout: s.timeout}).
		WithBaseURL(ups.EnvironmentProduction, s.ups.ProductionBaseURL).
		WithBaseURL(ups.EnvironmentSandbox, s.ups.SandboxBaseURL).
		WithLogger(slog.Default())
}

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	cyan   = color.New(color.FgCyan)
)

// errorText renders UPS errors with their server messages.
func errorText(err error) string {
	var authErr *ups.AuthenticationError
	var trErr *ups.TrackingError
	var cfgErr *ups.ConfigurationError
	switch {
	case errors.As(err, &authErr):
		return red.Sprint("authentication failed: ") + authErr.Error()
	case errors.As(err, &trErr):
		return red.Sprint("tracking failed: ") + trErr.Error()
	case errors.As(err, &cfgErr):
		return red.Sprint("configuration: ") + cfgErr.Error()
	default:
		return red.Sprint("error: ") + err.Error()
	}
}

func warn(w io.Writer, format string, args ...any) {
	_, _ = yellow.Fprintf(w, format, args...)
}
