package listing

import (
	"net/url"
	"strconv"
	"strings"

	"epsteindl/pkg/config"

	"golang.org/x/net/html"
)

// Extractor pulls document links for a dataset out of a listing page
type Extractor struct {
	baseURL      string
	pathTemplate string
	extension    string
}

// NewExtractor creates an Extractor for the site's file area
func NewExtractor(site config.SiteConfig) *Extractor {
	return &Extractor{
		baseURL:      strings.TrimRight(site.BaseURL, "/"),
		pathTemplate: site.FilePathTemplate,
		extension:    site.DocumentExtension,
	}
}

// Prefix is the encoded path every document of the dataset lives under
func (e *Extractor) Prefix(dataset int) string {
	return strings.ReplaceAll(e.pathTemplate, "{dataset}", strconv.Itoa(dataset))
}

// Extract returns absolute, percent-decoded document URLs in the order they
// appear in body. A page without matches yields an empty slice.
func (e *Extractor) Extract(body string, dataset int) []string {
	links := []string{}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return links
	}

	prefix := e.Prefix(dataset)

	var walker func(*html.Node)
	walker = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				if link, ok := e.match(attr.Val, prefix); ok {
					links = append(links, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walker(c)
		}
	}
	walker(doc)

	return links
}

func (e *Extractor) match(href, prefix string) (string, bool) {
	if !strings.HasPrefix(href, prefix) || !strings.HasSuffix(href, e.extension) {
		return "", false
	}
	if len(href) <= len(prefix)+len(e.extension) {
		return "", false
	}

	decoded, err := url.PathUnescape(href)
	if err != nil {
		// keep malformed escapes as they are
		decoded = href
	}
	return e.baseURL + decoded, true
}
