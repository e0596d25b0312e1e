// file: internal/credentials/minter.go
// version: 1.0.0
// guid: 0b3d6f9a-2c5e-4b8d-9f1a-4c6e8a0c2e5b

package credentials

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Minter obtains a brand-new raw credential from the provider.
type Minter interface {
	Mint(ctx context.Context) (string, error)
}

// MinterFunc adapts a function to Minter.
type MinterFunc func(ctx context.Context) (string, error)

func (f MinterFunc) Mint(ctx context.Context) (string, error) { return f(ctx) }

const (
	DefaultMintURL   = "https://hardcover.app"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

	maxPageBytes = 8 << 20
	// The page embeds its session payload as an escaped JSON string inside a script.
	tokenMarker = `\"token\":\"`
)

// HTTPMinter scrapes the token the provider embeds in its public landing page.
type HTTPMinter struct {
	httpClient *http.Client
	pageURL    string
	userAgent  string
}

// NewHTTPMinter creates a minter for pageURL with the given request timeout.
func NewHTTPMinter(pageURL, userAgent string, timeout time.Duration) *HTTPMinter {
	if pageURL == "" {
		pageURL = DefaultMintURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPMinter{
		httpClient: &http.Client{Timeout: timeout},
		pageURL:    pageURL,
		userAgent:  userAgent,
	}
}

func (m *HTTPMinter) Mint(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create mint request: %w", err)
	}
	req.Header.Set("User-Agent", m.userAgent)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", m.pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mint page returned status %d", resp.StatusCode)
	}
	return ExtractToken(io.LimitReader(resp.Body, maxPageBytes))
}

// ExtractToken walks the page's script bodies and returns the first embedded token.
func ExtractToken(page io.Reader) (string, error) {
	z := html.NewTokenizer(page)
	inScript := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return "", ErrTokenNotFound
			}
			return "", fmt.Errorf("failed to parse mint page: %w", z.Err())
		case html.StartTagToken:
			name, _ := z.TagName()
			inScript = string(name) == "script"
		case html.EndTagToken:
			inScript = false
		case html.TextToken:
			if !inScript {
				continue
			}
			if token, ok := tokenFromScript(string(z.Text())); ok {
				return token, nil
			}
		}
	}
}

func tokenFromScript(text string) (string, bool) {
	i := strings.Index(text, tokenMarker)
	if i < 0 {
		return "", false
	}
	rest := text[i+len(tokenMarker):]
	end := strings.Index(rest, `\"`)
	if end < 0 {
		end = strings.Index(rest, `"`)
	}
	if end <= 0 {
		return "", false
	}
	return rest[:end], true
}
