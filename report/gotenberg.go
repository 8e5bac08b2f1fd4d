package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Page describes the paper Chromium lays the document out on. Sizes are in inches.
type Page struct {
	Width     float64
	Height    float64
	Landscape bool
	Margin    float64
}

// A3Landscape is ISO A3 turned sideways; content longer than one sheet flows onto more pages.
var A3Landscape = Page{Width: 11.7, Height: 16.54, Landscape: true, Margin: 0.4}

// Client wraps interactions with the Gotenberg API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Ping checks if the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gotenberg returned status %d", resp.StatusCode)
	}
	return nil
}

// RenderHTML converts raw HTML into a PDF document laid out on page.
func (c *Client) RenderHTML(ctx context.Context, html string, page Page) ([]byte, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("gotenberg endpoint required")
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, err
	}
	for name, value := range page.fields() {
		if err := writer.WriteField(name, value); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/forms/chromium/convert/html", c.baseURL), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("render failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return io.ReadAll(resp.Body)
}

func (p Page) fields() map[string]string {
	out := map[string]string{"printBackground": "true"}
	if p.Width > 0 && p.Height > 0 {
		out["paperWidth"] = inches(p.Width)
		out["paperHeight"] = inches(p.Height)
	}
	if p.Landscape {
		out["landscape"] = "true"
	}
	if p.Margin > 0 {
		for _, side := range []string{"marginTop", "marginBottom", "marginLeft", "marginRight"} {
			out[side] = inches(p.Margin)
		}
	}
	return out
}

func inches(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "in"
}
