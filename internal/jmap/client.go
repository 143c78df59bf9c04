package jmap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	gojmap "git.sr.ht/~rockorager/go-jmap"
	jmapmail "git.sr.ht/~rockorager/go-jmap/mail"
	"golang.org/x/oauth2"

	"github.com/teemow/inboxreader/internal/logging"
	"github.com/teemow/inboxreader/internal/mail"
)

const (
	// DefaultSessionURL is Fastmail's JMAP session resource.
	DefaultSessionURL = "https://api.fastmail.com/jmap/session"

	// DefaultTimeout bounds a single HTTP round trip to the JMAP server.
	DefaultTimeout = 30 * time.Second

	// maxBodyValueBytes caps each fetched body value.
	maxBodyValueBytes = 1024 * 1024
)

// Config configures a Connector.
type Config struct {
	// SessionURL is the JMAP session resource. Defaults to DefaultSessionURL.
	SessionURL string

	// Timeout bounds each HTTP round trip. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Transport is the base HTTP transport. Defaults to http.DefaultTransport.
	Transport http.RoundTripper

	// Logger receives debug output. Defaults to logging.Discard.
	Logger logging.Logger
}

// Connector opens JMAP backends. It is safe for concurrent use.
type Connector struct {
	cfg Config
}

// NewConnector returns a Connector with cfg's zero fields defaulted.
func NewConnector(cfg Config) *Connector {
	if cfg.SessionURL == "" {
		cfg.SessionURL = DefaultSessionURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard{}
	}
	return &Connector{cfg: cfg}
}

// Connect fetches the JMAP session for token and returns a Backend bound to
// the account's primary mail account.
func (c *Connector) Connect(ctx context.Context, token string) (mail.Backend, error) {
	if token == "" {
		return nil, errors.New("jmap: empty API token")
	}

	transport := &contextTransport{base: c.cfg.Transport}
	transport.bind(ctx)

	client := &gojmap.Client{
		SessionEndpoint: c.cfg.SessionURL,
		HttpClient:      newHTTPClient(token, transport, c.cfg.Timeout),
	}
	if err := client.Authenticate(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("jmap session: %w", ctxErr)
		}
		return nil, fmt.Errorf("jmap session: %w", err)
	}

	account, ok := client.Session.PrimaryAccounts[jmapmail.URI]
	if !ok || account == "" {
		return nil, errors.New("jmap session: no primary mail account")
	}

	c.cfg.Logger.Debug("jmap session established", logging.UserHash(client.Session.Username))

	return &Backend{
		client:    client,
		account:   account,
		transport: transport,
		logger:    c.cfg.Logger,
	}, nil
}

// newHTTPClient returns a client that sends token as a bearer credential.
func newHTTPClient(token string, transport http.RoundTripper, timeout time.Duration) *http.Client {
	base := &http.Client{Transport: transport}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})

	client := oauth2.NewClient(ctx, src)
	client.Timeout = timeout
	return client
}

// contextTransport ties every request to the context of the tool call that
// owns the client, in addition to the request's own context.
type contextTransport struct {
	base http.RoundTripper

	mu  sync.Mutex
	ctx context.Context
}

func (t *contextTransport) bind(ctx context.Context) {
	t.mu.Lock()
	t.ctx = ctx
	t.mu.Unlock()
}

func (t *contextTransport) callContext() context.Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx == nil {
		return context.Background()
	}
	return t.ctx
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	callCtx := t.callContext()
	if err := callCtx.Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancelCause(req.Context())
	stop := context.AfterFunc(callCtx, func() {
		cancel(context.Cause(callCtx))
	})
	release := func() {
		stop()
		cancel(nil)
	}

	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		release()
		return nil, err
	}
	resp.Body = &releasingBody{ReadCloser: resp.Body, release: release}
	return resp, nil
}

// releasingBody runs release once the body is closed.
type releasingBody struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}
