package frummy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
)

// StoreClient moves opaque rows to and from named collections in the
// backend's data store. Payloads are never inspected or transformed here;
// row-level security and validation live server side.
type StoreClient struct {
	baseURL string
	anonKey string
	http    *http.Client
	logger  Logger
}

// Row is an opaque record payload.
type Row = map[string]any

// NewStoreClient returns a client for the configured backend.
func NewStoreClient(cfg Config) *StoreClient {
	return &StoreClient{
		baseURL: strings.TrimRight(cfg.GetBackendURL(), "/"),
		anonKey: cfg.GetAnonKey(),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: defLogger{},
	}
}

func (c *StoreClient) WithLogger(logger Logger) *StoreClient {
	if logger != nil {
		c.logger = logger
	}
	return c
}

func (c *StoreClient) WithHTTPClient(client *http.Client) *StoreClient {
	if client != nil {
		c.http = client
	}
	return c
}

// From scopes operations to a named collection.
func (c *StoreClient) From(collection string) *Collection {
	return &Collection{client: c, name: collection}
}

// Collection is a request builder for one named collection. Filters use the
// store's native operator syntax ("id" -> "eq.3") and pass through
// unexamined.
type Collection struct {
	client *StoreClient
	name   string
}

func (q *Collection) Insert(ctx context.Context, accessToken string, payload Row) ([]Row, error) {
	return q.client.do(ctx, http.MethodPost, q.name, accessToken, nil, payload)
}

func (q *Collection) Select(ctx context.Context, accessToken string, filters map[string]string) ([]Row, error) {
	return q.client.do(ctx, http.MethodGet, q.name, accessToken, filters, nil)
}

func (q *Collection) Update(ctx context.Context, accessToken string, filters map[string]string, payload Row) ([]Row, error) {
	return q.client.do(ctx, http.MethodPatch, q.name, accessToken, filters, payload)
}

func (q *Collection) Delete(ctx context.Context, accessToken string, filters map[string]string) ([]Row, error) {
	return q.client.do(ctx, http.MethodDelete, q.name, accessToken, filters, nil)
}

func (c *StoreClient) do(ctx context.Context, method, collection, accessToken string, filters map[string]string, payload Row) ([]Row, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to marshal store payload")
		}
		body = bytes.NewBuffer(data)
	}

	endpoint := c.baseURL + "/rest/v1/" + url.PathEscape(collection)
	if query := encodeFilters(filters); query != "" {
		endpoint += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create store request")
	}

	token := accessToken
	if token == "" {
		token = c.anonKey
	}

	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", "return=representation")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("store request", "method", method, "collection", collection)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "store request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read store response")
	}

	if resp.StatusCode >= 400 {
		return nil, errors.New(
			fmt.Sprintf("store error: status=%d body=%s", resp.StatusCode, string(data)),
			errors.CategoryInternal,
		).WithMetadata(map[string]any{
			"status":     resp.StatusCode,
			"collection": collection,
		})
	}

	if len(data) == 0 {
		return nil, nil
	}

	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		// single object responses come back unwrapped
		var row Row
		if err2 := json.Unmarshal(data, &row); err2 != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to unmarshal store response")
		}
		rows = []Row{row}
	}

	return rows, nil
}

func encodeFilters(filters map[string]string) string {
	if len(filters) == 0 {
		return ""
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		values.Add(k, filters[k])
	}
	return values.Encode()
}
