package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"ainotes/internal/api"
)

// UserHeader carries the caller identity on every jobs request.
const UserHeader = "X-User-ID"

// ErrAPIUnavailable reports that no daemon answered at the configured address.
var ErrAPIUnavailable = errors.New("ainotes API unavailable")

// Client talks to the ainotesd HTTP API.
type Client struct {
	base   *url.URL
	http   *http.Client
	token  string
	userID string
}

// Option customizes a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithUserID sets the identity sent in the X-User-ID header.
func WithUserID(userID string) Option {
	return func(c *Client) {
		c.userID = strings.TrimSpace(userID)
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New builds a client for the daemon at baseURL. A bare host:port is
// treated as http.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("api base url is empty")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	c := &Client{
		base: base,
		http: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Error is a non-2xx response decoded from the API error envelope.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d %s", e.StatusCode, e.Code)
}

// IsNotFound reports whether err is a NOT_FOUND API response.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsAPIUnavailable reports whether err came from failing to reach the daemon.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}

// SubmitRequest describes a document upload.
type SubmitRequest struct {
	FileName string
	Title    string
	Quality  string
	Body     io.Reader
}

// Submit uploads a PDF and returns the queued job reference.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*api.CreateJobResponse, error) {
	if req.Body == nil {
		return nil, errors.New("submit: body is nil")
	}
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if title := strings.TrimSpace(req.Title); title != "" {
		if err := writer.WriteField("title", title); err != nil {
			return nil, err
		}
	}
	if q := strings.TrimSpace(req.Quality); q != "" {
		if err := writer.WriteField("quality", q); err != nil {
			return nil, err
		}
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(req.FileName)))
	header.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, req.Body); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	var out api.CreateJobResponse
	if err := c.do(ctx, http.MethodPost, "/api/ainotes", writer.FormDataContentType(), &buf, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns the caller's jobs, newest first.
func (c *Client) List(ctx context.Context) ([]api.Job, error) {
	var out api.JobListResponse
	if err := c.do(ctx, http.MethodGet, "/api/ainotes", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Get fetches a single job.
func (c *Client) Get(ctx context.Context, id string) (*api.Job, error) {
	var out api.JobResponse
	if err := c.do(ctx, http.MethodGet, "/api/ainotes/"+url.PathEscape(id), "", nil, &out); err != nil {
		return nil, err
	}
	return &out.Item, nil
}

// Delete removes a job.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/ainotes/"+url.PathEscape(id), "", nil, nil)
}

// Export streams the XLSX export of the caller's jobs into w.
func (c *Client) Export(ctx context.Context, w io.Writer) error {
	resp, err := c.send(ctx, http.MethodGet, "/api/ainotes/export", "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(w, resp.Body)
	return err
}

// Status returns daemon runtime status.
func (c *Client) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var out api.DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	resp, err := c.send(ctx, method, path, contentType, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// send performs the request and converts error statuses into *Error. The
// caller owns the body of a successful response.
func (c *Client) send(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	if c == nil {
		return nil, ErrAPIUnavailable
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userID != "" {
		req.Header.Set(UserHeader, c.userID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 400 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &Error{StatusCode: resp.StatusCode}
	var payload api.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		apiErr.Code = payload.Error
		apiErr.Message = payload.Message
	} else {
		apiErr.Code = http.StatusText(resp.StatusCode)
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return nil, apiErr
}
