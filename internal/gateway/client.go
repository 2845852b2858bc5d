package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBytes = 10 << 20 // 10MB

type Options struct {
	BaseURL     string
	ListLimit   int
	Timeout     time.Duration
	MaxFailures uint32
	OpenTimeout time.Duration
	// Transport defaults to http.DefaultTransport; it is always wrapped by otelhttp.
	Transport http.RoundTripper
	// Token, when set, supplies the bearer token forwarded on every call.
	Token  func() string
	Logger *slog.Logger
}

// Client talks to the remote catalog gateway. The gateway offers no
// versioning or transactions and may drop writes it acknowledged.
type Client struct {
	baseURL   string
	listLimit int
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[[]byte]
	token     func() string
	log       *slog.Logger
}

func New(opts Options) *Client {
	if opts.ListLimit <= 0 {
		opts.ListLimit = 100
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	c := &Client{
		baseURL:   opts.BaseURL,
		listLimit: opts.ListLimit,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(opts.Transport),
		},
		token: opts.Token,
		log:   opts.Logger,
	}
	c.breaker = newBreaker(opts.MaxFailures, opts.OpenTimeout, c.log)
	return c
}

type productsEnvelope struct {
	Products []domain.CatalogEntry `json:"products"`
}

func (c *Client) ListProducts(ctx context.Context) ([]domain.CatalogEntry, error) {
	var env productsEnvelope
	path := "/products?limit=" + strconv.Itoa(c.listLimit)
	if err := c.do(ctx, "list products", http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	return env.Products, nil
}

func (c *Client) ListByCategory(ctx context.Context, category string) ([]domain.CatalogEntry, error) {
	var env productsEnvelope
	path := "/products/category/" + url.PathEscape(category)
	if err := c.do(ctx, "list category "+category, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	return env.Products, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (domain.CatalogEntry, error) {
	var e domain.CatalogEntry
	if err := c.do(ctx, "get product", http.MethodGet, productPath(id), nil, &e); err != nil {
		return domain.CatalogEntry{}, notFound(err, id)
	}
	return e, nil
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var cats []domain.Category
	if err := c.do(ctx, "list categories", http.MethodGet, "/products/categories", nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// CreateProduct posts a draft. The returned id is assigned by the gateway and
// the entry is not guaranteed to exist on a later read.
func (c *Client) CreateProduct(ctx context.Context, draft domain.CatalogEntry) (domain.CatalogEntry, error) {
	body, err := entryPayload(draft)
	if err != nil {
		return domain.CatalogEntry{}, err
	}
	var created domain.CatalogEntry
	if err := c.do(ctx, "create product", http.MethodPost, "/products/add", body, &created); err != nil {
		return domain.CatalogEntry{}, err
	}
	return created, nil
}

func (c *Client) UpdateProduct(ctx context.Context, e domain.CatalogEntry) (domain.CatalogEntry, error) {
	body, err := entryPayload(e)
	if err != nil {
		return domain.CatalogEntry{}, err
	}
	var updated domain.CatalogEntry
	if err := c.do(ctx, "update product", http.MethodPut, productPath(e.ID), body, &updated); err != nil {
		return domain.CatalogEntry{}, notFound(err, e.ID)
	}
	return updated, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	if err := c.do(ctx, "delete product", http.MethodDelete, productPath(id), nil, nil); err != nil {
		return notFound(err, id)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("%s: marshal request failed: %w", op, err)
		}
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, op, method, path, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.FetchError{Op: op, Err: fmt.Errorf("%w: %w", domain.ErrCircuitOpen, err)}
	}
	if err != nil {
		return err
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &domain.FetchError{Op: op, Err: fmt.Errorf("decode response failed: %w", err)}
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &domain.FetchError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := logger.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WarnContext(ctx, "gateway request failed", "op", op, "error", err)
		return nil, &domain.FetchError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &domain.FetchError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	c.log.DebugContext(ctx, "gateway request", "op", op, "method", method, "path", path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.FetchError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(gatewayMessage(data, resp.Status))}
	}
	return data, nil
}

// gatewayMessage extracts {"message": "..."} from an error body.
func gatewayMessage(data []byte, fallback string) string {
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		return body.Message
	}
	return fallback
}

func notFound(err error, id int64) error {
	var fe *domain.FetchError
	if errors.As(err, &fe) && fe.StatusCode == http.StatusNotFound {
		return &domain.NotFoundError{Kind: "product", ID: id}
	}
	return err
}

func productPath(id int64) string {
	return "/products/" + strconv.FormatInt(id, 10)
}

// entryPayload renders the writable fields of an entry; the id travels in the path.
func entryPayload(e domain.CatalogEntry) (map[string]any, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal product failed: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("marshal product failed: %w", err)
	}
	delete(m, "id")
	return m, nil
}
