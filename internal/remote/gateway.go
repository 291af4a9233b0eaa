package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/industria/bridge/internal/devices"
)

// Session supplies the endpoint and credential for each call. Invalidate is
// called when the server rejects token; implementations clear the stored
// credential only if it is still token.
type Session interface {
	Endpoint() string
	Token() string
	Invalidate(token string)
}

// API paths.
const (
	PathLogin    = "/api/auth/login"
	PathLicense  = "/api/cnc/puente/licencia"
	PathJobs     = "/api/cnc/puente/trabajos"
	PathDevices  = "/api/cnc/puente/configuracion"
	PathVersion  = "/api/cnc/puente/version"
	PathDownload = "/api/cnc/puente/descargar"
)

const defaultTimeout = 30 * time.Second

// Options tunes a Gateway. Zero values pick defaults; BreakerFailures of zero
// disables the circuit breaker.
type Options struct {
	Timeout         time.Duration
	UserAgent       string
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	HTTPClient      *http.Client
	Logger          zerolog.Logger
}

// Gateway is the only component that talks to the server.
type Gateway struct {
	session   Session
	http      *http.Client
	userAgent string
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	logger    zerolog.Logger
}

var errServerFailure = errors.New("server failure")

// New returns a Gateway bound to session.
func New(session Session, opts Options) *Gateway {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = "bridge/dev"
	}
	g := &Gateway{
		session:   session,
		http:      client,
		userAgent: userAgent,
		logger:    opts.Logger.With().Str("component", "remote").Logger(),
	}
	if opts.BreakerFailures > 0 {
		failures := opts.BreakerFailures
		g.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:    "remote",
			Timeout: opts.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				g.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			},
		})
	}
	return g
}

// Login exchanges credentials for a token. It does not require or touch the
// stored credential; a rejection surfaces as *HTTPError with the server message.
func (g *Gateway) Login(ctx context.Context, email, password string) (string, error) {
	var payload loginResponse
	body := loginRequest{Email: email, Password: password}
	if err := g.call(ctx, http.MethodPost, PathLogin, "", body, &payload); err != nil {
		return "", err
	}
	if strings.TrimSpace(payload.Token) == "" {
		return "", fmt.Errorf("login response carried no token")
	}
	return payload.Token, nil
}

// FetchLicense returns the entitlement status.
func (g *Gateway) FetchLicense(ctx context.Context) (License, error) {
	var payload License
	if err := g.Call(ctx, http.MethodGet, PathLicense, nil, &payload); err != nil {
		return License{}, err
	}
	return payload, nil
}

// FetchJobs returns pending jobs in server order.
func (g *Gateway) FetchJobs(ctx context.Context) ([]Job, error) {
	var payload []Job
	if err := g.Call(ctx, http.MethodGet, PathJobs, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// CompleteJob acknowledges a delivered job.
func (g *Gateway) CompleteJob(ctx context.Context, id string) error {
	path := PathJobs + "/" + url.PathEscape(id) + "/completar"
	return g.Call(ctx, http.MethodPost, path, nil, nil)
}

// FetchDevices returns the server's device configuration.
func (g *Gateway) FetchDevices(ctx context.Context) ([]devices.Device, error) {
	var payload []deviceRecord
	if err := g.Call(ctx, http.MethodGet, PathDevices, nil, &payload); err != nil {
		return nil, err
	}
	out := make([]devices.Device, 0, len(payload))
	for _, rec := range payload {
		out = append(out, rec.device())
	}
	return out, nil
}

// FetchVersion returns the latest published version. No credential is needed.
func (g *Gateway) FetchVersion(ctx context.Context) (Version, error) {
	var payload Version
	if err := g.call(ctx, http.MethodGet, PathVersion, "", nil, &payload); err != nil {
		return Version{}, err
	}
	return payload, nil
}

// Download streams the update artifact into w and returns the bytes written.
func (g *Gateway) Download(ctx context.Context, w io.Writer) (int64, error) {
	token := g.session.Token()
	if token == "" {
		return 0, ErrUnauthenticated
	}
	resp, err := g.send(ctx, http.MethodGet, PathDownload, token, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &NetworkError{Op: "read download", Err: err}
	}
	return n, nil
}

// Call performs an authenticated JSON request. body and dest may be nil.
func (g *Gateway) Call(ctx context.Context, method, path string, body, dest any) error {
	token := g.session.Token()
	if token == "" {
		return ErrUnauthenticated
	}
	return g.call(ctx, method, path, token, body, dest)
}

func (g *Gateway) call(ctx context.Context, method, path, token string, body, dest any) error {
	resp, err := g.send(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// send returns a 2xx response with an open body, or an error.
func (g *Gateway) send(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	base, err := parseBaseURL(g.session.Endpoint())
	if err != nil {
		return nil, err
	}
	reqURL := base.JoinPath(path)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.execute(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		g.logger.Warn().Str("path", path).Msg("credential rejected; clearing session")
		g.session.Invalidate(token)
		return nil, ErrUnauthenticated
	}
	return nil, httpError(resp)
}

func (g *Gateway) execute(req *http.Request) (*http.Response, error) {
	if g.breaker == nil {
		resp, err := g.http.Do(req)
		if err != nil {
			return nil, &NetworkError{Op: "execute request", Err: err}
		}
		return resp, nil
	}

	var resp *http.Response
	_, err := g.breaker.Execute(func() (*http.Response, error) {
		r, err := g.http.Do(req)
		if err != nil {
			return nil, err
		}
		resp = r
		if r.StatusCode >= 500 {
			return r, errServerFailure
		}
		return r, nil
	})
	switch {
	case err == nil, errors.Is(err, errServerFailure):
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, &NetworkError{Op: "circuit breaker", Err: err}
	default:
		return nil, &NetworkError{Op: "execute request", Err: err}
	}
}

func httpError(resp *http.Response) *HTTPError {
	out := &HTTPError{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return out
	}
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		out.Message = body.text()
	}
	return out
}

func parseBaseURL(endpoint string) (*url.URL, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("server url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server url %q: %w", endpoint, err)
	}
	// A deployment under a prefix (https://host/industria) keeps it; API
	// paths are joined below it.
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
