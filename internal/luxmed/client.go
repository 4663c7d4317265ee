// Package luxmed is the portal adapter: it owns the authentication
// handshake, the NewPortal terms query and the dictionary endpoints,
// and maps the vendor schema into normalized appointment records.
package luxmed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/time/rate"

	"github.com/jwalitptl/slot-sniper/pkg/circuitbreaker"
	apperrors "github.com/jwalitptl/slot-sniper/pkg/errors"
	"github.com/jwalitptl/slot-sniper/pkg/logger"
)

const (
	defaultBaseURL = "https://portalpacjenta.luxmed.pl/PatientPortal"

	loginPath = "/Account/LogIn"
	termsPath = "/NewPortal/terms/index"

	dictionaryCitiesPath     = "/NewPortal/Dictionary/cities"
	dictionaryServicesPath   = "/NewPortal/Dictionary/serviceVariantsGroups"
	dictionaryFacilitiesPath = "/NewPortal/Dictionary/facilitiesAndDoctors"
)

// Config holds portal credentials and client tuning.
type Config struct {
	Email    string        `mapstructure:"email" validate:"required,email"`
	Password string        `mapstructure:"password" validate:"required"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`

	// RequestsPerSecond throttles portal traffic so cycles stay under
	// the portal's rate limits. Zero means one request per second.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// Client is an authenticated portal session. Requests go through a
// rate limiter and a circuit breaker so a flapping portal is backed
// off instead of hammered.
type Client struct {
	baseURL    string
	email      string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *circuitbreaker.CircuitBreaker
	logger     *logger.Logger

	authToken string
	headers   map[string]string
}

func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	return &Client{
		baseURL:  cfg.BaseURL,
		email:    cfg.Email,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker: circuitbreaker.New(circuitbreaker.Settings{
			Name:        "luxmed-portal",
			MaxFailures: 5,
			Timeout:     2 * time.Minute,
		}),
		logger:  log,
		headers: map[string]string{},
	}, nil
}

// EnsureSession logs in with the configured credentials if the client
// has no live session. Called at the top of every poll cycle so an
// expired session heals on the next scheduled attempt.
func (c *Client) EnsureSession(ctx context.Context) error {
	if c.authToken != "" {
		return nil
	}
	return c.LogIn(ctx, c.email, c.password)
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// LogIn establishes the portal session. The portal hands back a bearer
// token in the body and session cookies it expects echoed as headers.
func (c *Client) LogIn(ctx context.Context, email, password string) error {
	body, err := json.Marshal(loginRequest{Login: email, Password: password})
	if err != nil {
		return apperrors.NewInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return apperrors.NewInternal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewAuthentication(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.NewAuthentication(fmt.Errorf("unexpected response %d, cannot log in", resp.StatusCode))
	}

	for _, cookie := range resp.Cookies() {
		c.headers[cookie.Name] = cookie.Value
	}

	var login loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return apperrors.NewAuthentication(fmt.Errorf("decode login response: %w", err))
	}
	if login.Token == "" {
		return apperrors.NewAuthentication(fmt.Errorf("login response carried no token"))
	}
	c.authToken = login.Token

	c.logger.Info("logged in to patient portal", "account", email)
	return nil
}

// get performs an authenticated GET through the limiter and breaker.
func (c *Client) get(ctx context.Context, path string, query map[string][]string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	return c.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return err
		}

		q := req.URL.Query()
		for key, values := range query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		req.URL.RawQuery = q.Encode()

		req.Header.Set("Content-Type", "application/json")
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}
		if c.authToken != "" {
			req.Header.Set("authorization-token", "Bearer "+c.authToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			// Session expired; drop the token so the next cycle re-logs.
			c.authToken = ""
			return fmt.Errorf("portal rejected session with %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
			return fmt.Errorf("portal returned %d: %s", resp.StatusCode, string(snippet))
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}
