package collection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/google/uuid"
)

const maxResponseBytes = 8 << 20

// HTTPClient matches the subset of http.Client used by Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Credentials authenticate requests against the CRM API.
type Credentials struct {
	Token  string
	Cookie *http.Cookie
}

type credentialsKey struct{}

// WithCredentials attaches credentials used by every request issued with ctx.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, creds)
}

// CredentialsFromContext returns credentials previously attached with WithCredentials.
func CredentialsFromContext(ctx context.Context) (Credentials, bool) {
	if ctx == nil {
		return Credentials{}, false
	}
	creds, ok := ctx.Value(credentialsKey{}).(Credentials)
	return creds, ok
}

// Client issues requests against the CRM REST API and maps failures to *Error.
type Client struct {
	base    *url.URL
	client  HTTPClient
	cookies []*http.Cookie
}

// ClientOption customises Client construction.
type ClientOption func(*Client)

// WithSessionCookie adds a session cookie to every request.
func WithSessionCookie(name, value string) ClientOption {
	return func(c *Client) {
		name = strings.TrimSpace(name)
		if name == "" || value == "" {
			return
		}
		c.cookies = append(c.cookies, &http.Cookie{Name: name, Value: value})
	}
}

// NewClient constructs a Client rooted at baseURL.
func NewClient(baseURL string, client HTTPClient, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("collection: base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("collection: parse base URL: %w", err)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	if client == nil {
		client = http.DefaultClient
	}
	c := &Client{base: parsed, client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Payload is a request body for create and update calls.
type Payload interface {
	encode() (io.Reader, string, error)
}

type jsonPayload struct {
	value any
}

// JSON wraps v as an application/json body.
func JSON(v any) Payload {
	return jsonPayload{value: v}
}

func (p jsonPayload) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p.value); err != nil {
		return nil, "", fmt.Errorf("collection: encode payload: %w", err)
	}
	return &buf, "application/json", nil
}

// File is one upload part of a Multipart payload.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Multipart is a form body with file uploads. Its content type carries the writer's boundary.
type Multipart struct {
	Fields map[string]string
	Files  []File
}

func (m Multipart) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, key := range slices.Sorted(maps.Keys(m.Fields)) {
		if err := w.WriteField(key, m.Fields[key]); err != nil {
			return nil, "", fmt.Errorf("collection: write field %s: %w", key, err)
		}
	}
	for _, f := range m.Files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Name))
		if f.ContentType != "" {
			header.Set("Content-Type", f.ContentType)
		} else {
			header.Set("Content-Type", "application/octet-stream")
		}
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("collection: create part %s: %w", f.Field, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("collection: write part %s: %w", f.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("collection: close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func asPayload(v any) Payload {
	switch p := v.(type) {
	case Payload:
		return p
	case *Multipart:
		return *p
	}
	return JSON(v)
}

type response struct {
	status    int
	body      any
	malformed bool
}

// do sends one request. A nil error means a 2xx response; body is nil for empty or unparseable bodies.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, payload Payload) (response, error) {
	req, err := c.newRequest(ctx, method, endpoint, query, payload)
	if err != nil {
		return response{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return response{}, &Error{Kind: KindNetwork, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return response{status: resp.StatusCode}, errorFromResponse(resp)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return response{}, &Error{Kind: KindNetwork, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	out := response{status: resp.StatusCode}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out.body); err != nil {
		out.body = nil
		out.malformed = true
	}
	return out, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, payload Payload) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
	)
	if payload != nil {
		var err error
		body, contentType, err = payload.encode()
		if err != nil {
			return nil, err
		}
	}
	urlStr := c.resolve(endpoint, query)
	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, fmt.Errorf("collection: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	if creds, ok := CredentialsFromContext(ctx); ok {
		if creds.Token != "" {
			req.Header.Set("Authorization", "Bearer "+creds.Token)
		}
		if creds.Cookie != nil {
			req.AddCookie(creds.Cookie)
		}
	}
	return req, nil
}

func (c *Client) resolve(endpoint string, query url.Values) string {
	trimmed := strings.TrimPrefix(endpoint, "/")
	ref := &url.URL{Path: trimmed}
	resolved := c.base.ResolveReference(ref)
	if len(query) > 0 {
		resolved.RawQuery = query.Encode()
	}
	return resolved.String()
}

func joinPath(elem ...string) string {
	parts := make([]string, 0, len(elem))
	for _, e := range elem {
		e = strings.Trim(e, "/")
		if e != "" {
			parts = append(parts, e)
		}
	}
	return path.Join(parts...)
}

func errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	message := messageFromBody(body)
	if message == "" {
		message = strings.TrimSpace(resp.Status)
	}
	if message == "" {
		message = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return &Error{Kind: KindHTTP, Status: resp.StatusCode, Message: message}
}

func messageFromBody(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if msg, ok := payload["message"].(string); ok && strings.TrimSpace(msg) != "" {
		return strings.TrimSpace(msg)
	}
	switch v := payload["error"].(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			return strings.TrimSpace(msg)
		}
	}
	return ""
}
