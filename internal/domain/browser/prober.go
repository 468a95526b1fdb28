package browser

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/thatfloflo/quahl/internal/infrastructure/logging"
)

// PageMeta is what a probe learned about a navigated page.
type PageMeta struct {
	Title   string
	IconURL string
}

// Prober resolves page metadata for a window after navigation. The
// rendering engine would report these through its own signals; without
// one, the facade fetches the document itself.
type Prober interface {
	Probe(ctx context.Context, pageURL string) (PageMeta, error)
}

// HTTPProber fetches the page over HTTP and reads <title> and the icon
// <link> out of the document.
type HTTPProber struct {
	client *resty.Client
	log    *logging.Logger
}

// NewHTTPProber creates a prober with the given per-probe timeout.
func NewHTTPProber(timeout time.Duration, log *logging.Logger) *HTTPProber {
	if log == nil {
		log = logging.NewNop()
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "Quahl/0.1")
	return &HTTPProber{client: client, log: log}
}

// Probe implements Prober.
func (p *HTTPProber) Probe(ctx context.Context, pageURL string) (PageMeta, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return PageMeta{}, fmt.Errorf("probe %q: %w", pageURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return PageMeta{}, fmt.Errorf("probe %q: unsupported scheme %q", pageURL, base.Scheme)
	}

	resp, err := p.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return PageMeta{}, fmt.Errorf("probe %q: %w", pageURL, err)
	}
	if !resp.IsSuccess() {
		return PageMeta{}, fmt.Errorf("probe %q: status %d", pageURL, resp.StatusCode())
	}

	// Redirects may have moved the document; resolve relative icon
	// hrefs against where it actually came from.
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		base = raw.Request.URL
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return PageMeta{}, fmt.Errorf("probe %q: parse: %w", pageURL, err)
	}

	meta := PageMeta{
		Title:   strings.TrimSpace(doc.Find("title").First().Text()),
		IconURL: iconHref(doc, base),
	}
	return meta, nil
}

// iconHref picks the page's icon link, falling back to /favicon.ico.
func iconHref(doc *goquery.Document, base *url.URL) string {
	var href string
	doc.Find("link[rel]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		rel, _ := sel.Attr("rel")
		if !strings.Contains(strings.ToLower(rel), "icon") {
			return true
		}
		if h, ok := sel.Attr("href"); ok && h != "" {
			href = h
			return false
		}
		return true
	})
	if href == "" {
		href = "/favicon.ico"
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
