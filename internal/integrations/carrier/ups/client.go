package ups

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client talks to the UPS OAuth and Tracking endpoints. It keeps no per-call state and
// is safe for concurrent use once configured.
type Client struct {
	rc       *resty.Client
	baseURLs map[Environment]string
	rand     Rand
	logger   *slog.Logger
}

// New builds a Client over httpc. A nil httpc gets a client with a 10s timeout.
func New(httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		rc: resty.NewWithClient(httpc),
		baseURLs: map[Environment]string{
			EnvironmentProduction: ProductionBaseURL,
			EnvironmentSandbox:    SandboxBaseURL,
		},
		rand:   globalRand{},
		logger: slog.Default(),
	}
}

// WithBaseURL overrides the base URL of one environment. Empty values are ignored.
func (c *Client) WithBaseURL(env Environment, baseURL string) *Client {
	if baseURL != "" {
		c.baseURLs[env] = strings.TrimRight(baseURL, "/")
	}
	return c
}

func (c *Client) WithRand(r Rand) *Client {
	if r != nil {
		c.rand = r
	}
	return c
}

func (c *Client) WithLogger(l *slog.Logger) *Client {
	if l != nil {
		c.logger = l
	}
	return c
}

func (c *Client) baseURL(env Environment) string {
	return c.baseURLs[env]
}

func protocolError(resp *resty.Response, reason string, err error) *ProtocolError {
	return &ProtocolError{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Reason:     reason,
		Err:        err,
	}
}
