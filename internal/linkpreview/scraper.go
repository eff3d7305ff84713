package linkpreview

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/html"
)

const (
	maxBodySize  = 1 << 20 // 1 MB
	maxRedirects = 3
)

// HTTPScraper is the default Scraper. It GETs the page and reads Open Graph
// metadata from the document head.
type HTTPScraper struct {
	client    *http.Client
	userAgent string
}

// NewHTTPScraper creates an HTTPScraper with an SSRF-safe client.
func NewHTTPScraper(userAgent string, timeout time.Duration) *HTTPScraper {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := &net.Dialer{Timeout: timeout}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return safeDialContext(ctx, dialer, network, addr)
		},
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}
	client := &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(transport),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
	return NewHTTPScraperWithClient(client, userAgent)
}

// NewHTTPScraperWithClient creates an HTTPScraper using client as is.
func NewHTTPScraperWithClient(client *http.Client, userAgent string) *HTTPScraper {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPScraper{client: client, userAgent: userAgent}
}

// Scrape implements Scraper.
func (s *HTTPScraper) Scrape(ctx context.Context, rawURL string) (*Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	// Relative links resolve against the final URL after redirects.
	base := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "application/octet-stream"
	}

	if mediaType != "text/html" && mediaType != "application/xhtml+xml" {
		return nonHTMLRecord(rawURL, base, mediaType), nil
	}

	rec, err := parseHead(io.LimitReader(resp.Body, maxBodySize), base)
	if err != nil {
		return nil, err
	}
	rec.URL = rawURL
	rec.ContentType = mediaType
	if rec.Title == "" && rec.Description == "" && len(rec.Images) == 0 {
		return nil, ErrNoPreview
	}
	return rec, nil
}

func nonHTMLRecord(rawURL string, base *url.URL, mediaType string) *Record {
	major, _, _ := strings.Cut(mediaType, "/")
	rec := &Record{
		URL:         rawURL,
		MediaType:   major,
		ContentType: mediaType,
		Images:      []string{},
		Videos:      []string{},
		Favicons:    []string{defaultFavicon(base)},
	}
	switch major {
	case "image":
		rec.Images = append(rec.Images, rawURL)
	case "video":
		rec.Videos = append(rec.Videos, rawURL)
	}
	return rec
}

// parseHead reads og:*, twitter:* and icon links from the document head and
// falls back to <title> / <meta name="description">. Parsing stops at <body>.
func parseHead(r io.Reader, base *url.URL) (*Record, error) {
	tokenizer := html.NewTokenizer(r)
	rec := &Record{MediaType: "website"}
	var fallbackTitle, fallbackDesc, twitterTitle, twitterImage string
	images := newURLSet(base)
	videos := newURLSet(base)
	favicons := newURLSet(base)

	finish := func() (*Record, error) {
		if rec.Title == "" {
			rec.Title = firstNonEmpty(twitterTitle, fallbackTitle)
		}
		if rec.Description == "" {
			rec.Description = fallbackDesc
		}
		if images.empty() && twitterImage != "" {
			images.add(twitterImage)
		}
		if favicons.empty() {
			favicons.add(defaultFavicon(base))
		}
		rec.Images = images.list()
		rec.Videos = videos.list()
		rec.Favicons = favicons.list()
		return rec, nil
	}

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			if err := tokenizer.Err(); err != nil && err != io.EOF {
				return nil, err
			}
			return finish()

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tag := string(tn)

			if tag == "body" {
				return finish()
			}

			if tag == "title" && fallbackTitle == "" {
				if tokenizer.Next() == html.TextToken {
					fallbackTitle = strings.TrimSpace(string(tokenizer.Text()))
				}
				continue
			}

			if !hasAttr {
				continue
			}
			attrs := readAttrs(tokenizer)

			switch tag {
			case "meta":
				key := attrs["property"]
				if key == "" {
					key = attrs["name"]
				}
				content := strings.TrimSpace(attrs["content"])
				if content == "" {
					continue
				}
				switch strings.ToLower(key) {
				case "og:title":
					rec.Title = content
				case "og:description":
					rec.Description = content
				case "og:site_name":
					rec.SiteName = content
				case "og:type":
					rec.MediaType = content
				case "og:image", "og:image:url", "og:image:secure_url":
					images.add(content)
				case "og:video", "og:video:url", "og:video:secure_url":
					videos.add(content)
				case "twitter:title":
					twitterTitle = content
				case "twitter:image", "twitter:image:src":
					if twitterImage == "" {
						twitterImage = content
					}
				case "description":
					if fallbackDesc == "" {
						fallbackDesc = content
					}
				}
			case "link":
				if isIconRel(attrs["rel"]) && attrs["href"] != "" {
					favicons.add(attrs["href"])
				}
			}
		}
	}
}

// readAttrs collects all attributes from the current tag token.
func readAttrs(z *html.Tokenizer) map[string]string {
	attrs := make(map[string]string)
	for {
		key, val, more := z.TagAttr()
		k := string(key)
		if k != "" {
			attrs[k] = string(val)
		}
		if !more {
			break
		}
	}
	return attrs
}

func isIconRel(rel string) bool {
	for _, r := range strings.Fields(strings.ToLower(rel)) {
		if r == "icon" || r == "apple-touch-icon" {
			return true
		}
	}
	return false
}

func defaultFavicon(base *url.URL) string {
	return (&url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/favicon.ico"}).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// urlSet keeps resolved URLs in insertion order without duplicates.
type urlSet struct {
	base  *url.URL
	seen  map[string]bool
	items []string
}

func newURLSet(base *url.URL) *urlSet {
	return &urlSet{base: base, seen: make(map[string]bool), items: []string{}}
}

func (s *urlSet) add(ref string) {
	u, err := url.Parse(ref)
	if err != nil {
		return
	}
	abs := s.base.ResolveReference(u).String()
	if s.seen[abs] {
		return
	}
	s.seen[abs] = true
	s.items = append(s.items, abs)
}

func (s *urlSet) empty() bool { return len(s.items) == 0 }

func (s *urlSet) list() []string { return s.items }

// privateRanges are CIDR blocks for private / loopback IPs.
var privateRanges []*net.IPNet

func init() {
	for _, cidr := range []string{
		"127.0.0.0/8",
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"0.0.0.0/8",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	} {
		_, block, _ := net.ParseCIDR(cidr)
		privateRanges = append(privateRanges, block)
	}
}

func isPrivateIP(ip net.IP) bool {
	for _, block := range privateRanges {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// safeDialContext resolves DNS then rejects private IPs before connecting.
func safeDialContext(ctx context.Context, dialer *net.Dialer, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no addresses for %s", host)
	}

	for _, ip := range ips {
		if isPrivateIP(ip.IP) {
			return nil, fmt.Errorf("connection to private IP %s is not allowed", ip.IP)
		}
	}

	// Connect to the first resolved IP.
	return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
}
