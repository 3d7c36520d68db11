package retriever

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single request including redirects.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxBodyBytes caps how much of a response is read.
	DefaultMaxBodyBytes int64 = 10 << 20
	maxRedirects              = 10
)

// Client performs browser-like GET requests.
type Client struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
}

// Response is a fully read HTTP response.
type Response struct {
	URL           string
	FinalURL      string
	ContentType   string
	Body          []byte
	RedirectChain []string
	StatusCode    int
}

// NewClient creates a client with browser-like configuration.
func NewClient(timeout time.Duration, maxBodyBytes int64) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: false},
			MaxIdleConnsPerHost: 10,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Publisher landing pages often chain through DOI resolvers.
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects: %d", len(via))
			}
			// Preserve headers through redirects
			if len(via) > 0 {
				req.Header = via[0].Header.Clone()
			}
			return nil
		},
	}

	return &Client{
		client:       client,
		userAgent:    getRandomUserAgent(),
		maxBodyBytes: maxBodyBytes,
	}
}

// Get fetches targetURL and reads its body. Status codes >= 400 are returned
// as *StatusError.
func (c *Client) Get(ctx context.Context, targetURL string) (*Response, error) {
	parsedURL, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL: unsupported scheme %q", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsedURL.String(), http.NoBody)
	if err != nil {
		return nil, err
	}

	c.addBrowserHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	result := &Response{
		URL:         targetURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}

	if result.FinalURL != targetURL {
		result.RedirectChain = []string{targetURL, result.FinalURL}
	}

	if resp.StatusCode >= 400 {
		return result, &StatusError{URL: targetURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return result, fmt.Errorf("read body: %w", err)
	}

	if int64(len(body)) > c.maxBodyBytes {
		return result, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, c.maxBodyBytes)
	}

	result.Body = body

	return result, nil
}

// addBrowserHeaders adds realistic browser headers. Accept-Encoding is left
// to the transport so compressed bodies are decoded transparently.
func (c *Client) addBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/pdf;q=0.8,*/*;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")
	req.Header.Set("Cache-Control", "max-age=0")
}

// getRandomUserAgent returns a realistic desktop browser user agent.
func getRandomUserAgent() string {
	userAgents := []string{
		// Chrome on Windows
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		// Chrome on macOS
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		// Firefox on Windows
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		// Firefox on macOS
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0",
		// Safari on macOS
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		// Chrome on Linux
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}

	return userAgents[int(time.Now().UnixNano()%int64(len(userAgents)))]
}

// Content categories a fetched body can be turned into text from.
const (
	contentHTML        = "html"
	contentPDF         = "pdf"
	contentText        = "text"
	contentUnsupported = "unsupported"
)

// contentCategory classifies a response by its declared type, sniffing the
// body when the server sends none.
func contentCategory(contentType string, body []byte) string {
	if strings.TrimSpace(contentType) == "" {
		contentType = http.DetectContentType(body)
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}

	switch {
	case mediaType == "text/html", mediaType == "application/xhtml+xml":
		return contentHTML
	case mediaType == "application/pdf", mediaType == "application/x-pdf":
		return contentPDF
	case strings.HasPrefix(mediaType, "text/"), mediaType == "application/xml":
		return contentText
	default:
		return contentUnsupported
	}
}

// IsHealthyResponse checks if the HTTP status indicates a usable response.
func IsHealthyResponse(statusCode int) bool {
	return statusCode >= 200 && statusCode < 400
}
