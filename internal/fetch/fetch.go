// Package fetch retrieves single HTML pages for auditing.
package fetch

import (
	"bytes"
	"context"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/TobiSchelling/leadcrawler/internal/neterr"
)

// maxBody caps how much of a response is kept.
const maxBody = 5 << 20

// Page is one fetched HTTP response.
type Page struct {
	URL      string
	FinalURL string
	Status   int
	Body     []byte
	Elapsed  time.Duration
	Title    string
}

// OK reports whether the response status is below 400.
func (p *Page) OK() bool {
	return p.Status < 400
}

// Err returns a typed HTTPStatus error for status >= 400, otherwise nil.
func (p *Page) Err() error {
	if p.OK() {
		return nil
	}
	return neterr.Wrap("fetch "+p.URL, &neterr.StatusError{Code: p.Status})
}

// HTML returns the body as a string.
func (p *Page) HTML() string {
	return string(p.Body)
}

// SizeKB returns the body size in KB, rounded to one decimal.
func (p *Page) SizeKB() float64 {
	return math.Round(float64(len(p.Body))/1024*10) / 10
}

// IsHTTPS reports whether the final URL was served over TLS.
func (p *Page) IsHTTPS() bool {
	return strings.HasPrefix(p.FinalURL, "https://")
}

// SiteName extracts the site name from page metadata, or "" if none is declared.
func (p *Page) SiteName() string {
	u, _ := url.Parse(p.FinalURL)
	article, err := readability.FromReader(bytes.NewReader(p.Body), u)
	if err == nil && strings.TrimSpace(article.SiteName) != "" {
		return strings.TrimSpace(article.SiteName)
	}

	// Readability gives up on pages without an article body.
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return ""
	}
	name, _ := doc.Find(`meta[property="og:site_name"]`).Attr("content")
	return strings.TrimSpace(name)
}

// Fetcher issues GET requests with a browser-like header set.
type Fetcher struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// New creates a Fetcher. Per-request timeouts are passed to Get.
func New(userAgent string, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent: userAgent,
		logger:    logger,
	}
}

// Get fetches rawURL within timeout. Any HTTP response is returned as a Page,
// whatever its status; transport failures come back as *neterr.Error.
func (f *Fetcher) Get(ctx context.Context, rawURL string, timeout time.Duration) (*Page, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("fetch failed", zap.String("url", rawURL), zap.Error(err))
		return nil, neterr.Wrap("fetch "+rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, neterr.Wrap("reading "+rawURL, err)
	}

	page := &Page{
		URL:      rawURL,
		FinalURL: resp.Request.URL.String(),
		Status:   resp.StatusCode,
		Body:     body,
		Elapsed:  time.Since(start),
	}
	page.Title = extractTitle(body)

	f.logger.Debug("fetched",
		zap.String("url", rawURL),
		zap.Int("status", page.Status),
		zap.Duration("elapsed", page.Elapsed),
	)
	return page, nil
}

func extractTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
