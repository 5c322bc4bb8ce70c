// Package scrape is a PartSource that extracts parts from HTML listings.
//
// Pages are expected to mark each part with CSS classes:
//
//	<div class="part" data-id="rtx-4070" data-category="gpu">
//	  <a class="part-name" href="/p/rtx-4070">RTX 4070</a>
//	  <span class="part-brand">NVIDIA</span>
//	  <span class="part-price">$599.00</span>
//	  <img class="part-image" src="/img/rtx-4070.png">
//	  <dl class="part-specs"><dt>Memory</dt><dd>12 GB</dd></dl>
//	</div>
//
// Class names are configurable through Selectors. Links and images are
// resolved against the page URL.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/jonwraymond/partsource/adapters"
	"github.com/jonwraymond/partsource/provider"
)

// Selectors names the CSS classes that mark part fields.
type Selectors struct {
	Item  string // Default: part
	Name  string // Default: part-name
	Brand string // Default: part-brand
	Price string // Default: part-price
	Image string // Default: part-image
	Specs string // Default: part-specs
}

func (s Selectors) withDefaults() Selectors {
	def := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	def(&s.Item, "part")
	def(&s.Name, "part-name")
	def(&s.Brand, "part-brand")
	def(&s.Price, "part-price")
	def(&s.Image, "part-image")
	def(&s.Specs, "part-specs")
	return s
}

// Config configures a scrape Source.
type Config struct {
	// SearchURL is the listing URL with {query} and {category} placeholders.
	SearchURL string

	// DetailURL is the detail page URL with an {id} placeholder. When
	// empty, GetPartDetails fails permanently.
	DetailURL string

	// Currency is assigned to every scraped price.
	Currency string

	// Selectors names the CSS classes to extract.
	Selectors Selectors

	// UserAgent is sent with every request.
	// Default: partsource/1.0
	UserAgent string

	// HTTPClient performs requests.
	// If nil, a default client with 30s timeout is used.
	HTTPClient *http.Client
}

// Source implements provider.PartSource.
type Source struct {
	config Config
}

// New creates a scrape Source.
func New(config Config) *Source {
	config.Selectors = config.Selectors.withDefaults()
	if config.UserAgent == "" {
		config.UserAgent = "partsource/1.0"
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}
	return &Source{config: config}
}

// IsAvailable reports whether a search URL is configured.
func (s *Source) IsAvailable(context.Context) bool {
	return s.config.SearchURL != ""
}

// SearchParts implements provider.PartSource.
func (s *Source) SearchParts(ctx context.Context, query, category string, limit int) ([]provider.NormalizedResult, error) {
	page := expand(s.config.SearchURL, map[string]string{
		"query":    url.QueryEscape(query),
		"category": url.QueryEscape(category),
	})
	doc, base, err := s.fetch(ctx, page)
	if err != nil {
		return nil, err
	}

	var out []provider.NormalizedResult
	for _, n := range findAll(doc, s.config.Selectors.Item) {
		if limit > 0 && len(out) == limit {
			break
		}
		r := s.extract(n, base)
		if r.Name == "" {
			continue
		}
		if r.Category == "" {
			r.Category = category
		}
		out = append(out, r)
	}
	return out, nil
}

// GetPartDetails implements provider.PartSource.
func (s *Source) GetPartDetails(ctx context.Context, id string) (provider.NormalizedResult, error) {
	if s.config.DetailURL == "" {
		return provider.NormalizedResult{}, provider.Errorf(provider.KindPermanent, "detail pages not configured")
	}
	page := expand(s.config.DetailURL, map[string]string{"id": url.PathEscape(id)})
	doc, base, err := s.fetch(ctx, page)
	if err != nil {
		return provider.NormalizedResult{}, err
	}

	items := findAll(doc, s.config.Selectors.Item)
	if len(items) == 0 {
		return provider.NormalizedResult{}, provider.Errorf(provider.KindNotFound, "no part on %s", page)
	}
	r := s.extract(items[0], base)
	if r.ID == "" {
		r.ID = id
	}
	return r, nil
}

func (s *Source) fetch(ctx context.Context, page string) (*html.Node, *url.URL, error) {
	base, err := url.Parse(page)
	if err != nil {
		return nil, nil, provider.Wrap(provider.KindPermanent, fmt.Errorf("parse url: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page, nil)
	if err != nil {
		return nil, nil, provider.Wrap(provider.KindPermanent, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := s.config.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, adapters.TransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, adapters.StatusError(resp.StatusCode, "")
	}
	doc, err := html.Parse(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, nil, provider.Wrap(provider.KindPermanent, fmt.Errorf("parse html: %w", err))
	}
	return doc, base, nil
}

func (s *Source) extract(n *html.Node, base *url.URL) provider.NormalizedResult {
	sel := s.config.Selectors
	r := provider.NormalizedResult{
		ID:       attr(n, "data-id"),
		Category: attr(n, "data-category"),
		Currency: s.config.Currency,
	}

	if name := findFirst(n, sel.Name); name != nil {
		r.Name = text(name)
		if href := attr(name, "href"); href != "" {
			r.URL = resolve(base, href)
		}
	}
	if brand := findFirst(n, sel.Brand); brand != nil {
		r.Brand = text(brand)
	}
	if price := findFirst(n, sel.Price); price != nil {
		r.Price = parsePrice(text(price))
	}
	if img := findFirst(n, sel.Image); img != nil {
		if src := attr(img, "src"); src != "" {
			r.Image = resolve(base, src)
		}
	}
	if specs := findFirst(n, sel.Specs); specs != nil {
		r.Specifications = specList(specs)
	}
	return r
}

// specList reads <dt>/<dd> pairs.
func specList(n *html.Node) map[string]provider.SpecValue {
	out := make(map[string]provider.SpecValue)
	var key string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "dt":
			key = strings.ToLower(text(c))
		case "dd":
			if key != "" {
				out[key] = provider.Text(text(c))
				key = ""
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func findAll(n *html.Node, class string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, class) {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func findFirst(n *html.Node, class string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && hasClass(c, class) {
			return c
		}
		if found := findFirst(c, class); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// parsePrice reads the first number in s, ignoring currency symbols and
// thousands separators. Unparseable prices are 0.
func parsePrice(s string) float64 {
	var digits strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
			digits.WriteRune(r)
		case r == ',':
		case digits.Len() > 0:
			v, _ := strconv.ParseFloat(digits.String(), 64)
			return v
		}
	}
	v, _ := strconv.ParseFloat(digits.String(), 64)
	return v
}

func expand(tmpl string, vars map[string]string) string {
	for k, v := range vars {
		tmpl = strings.ReplaceAll(tmpl, "{"+k+"}", v)
	}
	return tmpl
}

var _ provider.PartSource = (*Source)(nil)
