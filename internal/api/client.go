// Package api is the HTTP client for the stock comparison service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/JonMunkholm/stocksync/internal/core"
)

// Service endpoints, relative to the base URL.
const (
	UploadPath      = "/api/upload-and-compare"
	LastRecordPath  = "/api/get-last-record"
	DeleteTablePath = "/api/delete-stock-table"

	// FileField is the multipart field carrying the spreadsheet.
	FileField = "file"
)

// DefaultDeleteMessage is reported when the service deletes the table
// without saying so.
const DefaultDeleteMessage = "DB Table is deleted."

const lastRecordKey = "last-record"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Options configures a Client.
type Options struct {
	BaseURL       string
	Timeout       time.Duration // Per-request timeout for non-upload calls
	UploadTimeout time.Duration // Whole-transfer timeout for uploads (0 = none)
	LastRecordTTL time.Duration // Cache lifetime for last-record lookups (0 = no cache)
	HTTPClient    *http.Client
}

// Client talks to the comparison service.
type Client struct {
	base          *url.URL
	http          *http.Client
	timeout       time.Duration
	uploadTimeout time.Duration
	lastRecord    *cache.Cache
}

// New creates a client for the service at opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("parse base url: unsupported scheme %q", base.Scheme)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		// No client-wide timeout: uploads are bounded by context instead.
		httpClient = &http.Client{}
	}

	c := &Client{
		base:          base,
		http:          httpClient,
		timeout:       opts.Timeout,
		uploadTimeout: opts.UploadTimeout,
	}
	if opts.LastRecordTTL > 0 {
		c.lastRecord = cache.New(opts.LastRecordTTL, 2*opts.LastRecordTTL)
	}
	return c, nil
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

// Upload streams file to the comparison endpoint as multipart/form-data
// and decodes the comparison result. Non-2xx answers return a
// *core.ServerError carrying the body's "message" field.
func (c *Client) Upload(ctx context.Context, file *core.UploadFile) (*core.UploadResult, error) {
	if file == nil || file.Reader == nil {
		return nil, core.ErrNoFile
	}
	if c.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.uploadTimeout)
		defer cancel()
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile(FileField, file.Name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file.Reader); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(UploadPath), pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	// Unblocks the writer goroutine if the request ended early.
	pr.Close()
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", file.Name, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result core.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if result.InsertedRecords == nil {
		result.InsertedRecords = core.RecordCollection{}
	}
	if result.MissingRecords == nil {
		result.MissingRecords = core.RecordCollection{}
	}
	return &result, nil
}

// lastRecordBody accepts the record at the top level or wrapped in "data".
type lastRecordBody struct {
	core.LastRecord
	Data *core.LastRecord `json:"data"`
}

// LastRecord fetches the newest row of the remote stock table. Results are
// cached for the configured TTL.
func (c *Client) LastRecord(ctx context.Context) (*core.LastRecord, error) {
	if c.lastRecord != nil {
		if v, ok := c.lastRecord.Get(lastRecordKey); ok {
			rec := v.(core.LastRecord)
			return &rec, nil
		}
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(LastRecordPath), nil)
	if err != nil {
		return nil, fmt.Errorf("create last-record request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get last record: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var body lastRecordBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode last record: %w", err)
	}
	rec := body.LastRecord
	if body.Data != nil {
		rec = *body.Data
	}
	if rec.CreatedAt.IsZero() {
		return nil, errors.New("decode last record: missing created_at")
	}

	if c.lastRecord != nil {
		c.lastRecord.SetDefault(lastRecordKey, rec)
	}
	return &rec, nil
}

// DeleteStockTable deletes the remote stock table and returns the
// service's message. It also drops the cached last record.
func (c *Client) DeleteStockTable(ctx context.Context) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint(DeleteTablePath), nil)
	if err != nil {
		return "", fmt.Errorf("create delete request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("delete stock table: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	if c.lastRecord != nil {
		c.lastRecord.Delete(lastRecordKey)
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&body); err != nil {
		if !errors.Is(err, io.EOF) {
			slog.Debug("delete response has no JSON body", "error", err)
		}
	}
	if body.Message == "" {
		return DefaultDeleteMessage, nil
	}
	return body.Message, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// checkStatus turns a non-2xx response into a *core.ServerError.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		slog.Debug("error response is not JSON",
			"status", resp.StatusCode,
			"body", truncate(string(data), 200))
	}
	return &core.ServerError{StatusCode: resp.StatusCode, Message: body.Message}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
