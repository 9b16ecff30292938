package dom

import (
	"fmt"
	"strings"
	"sync"
)

// StylesheetLink models one <link rel="stylesheet"> element.
type StylesheetLink struct {
	Href string
}

// Stylesheets tracks the document's stylesheet links and performs the
// flash-free swap used by css:update handling.
type Stylesheets struct {
	mu    sync.Mutex
	links []*StylesheetLink
}

// NewStylesheets creates a stylesheet list with the given initial hrefs.
func NewStylesheets(hrefs ...string) *Stylesheets {
	s := &Stylesheets{}
	for _, h := range hrefs {
		s.links = append(s.links, &StylesheetLink{Href: h})
	}
	return s
}

// Hrefs returns the current link hrefs in document order.
func (s *Stylesheets) Hrefs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.links))
	for i, l := range s.links {
		out[i] = l.Href
	}
	return out
}

// Swap replaces every link whose href contains url with a fresh link
// pointing at the same URL plus a cache-defeating query parameter. The
// replacement is inserted before the original is removed so the page is
// never left unstyled.
func (s *Stylesheets) Swap(url string, timestamp int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := fmt.Sprintf("%s?t=%d", url, timestamp)
	swapped := 0

	next := make([]*StylesheetLink, 0, len(s.links))
	for _, link := range s.links {
		if !strings.Contains(link.Href, url) {
			next = append(next, link)
			continue
		}
		// Insert the replacement, then drop the original.
		next = append(next, &StylesheetLink{Href: fresh})
		swapped++
	}
	s.links = next
	return swapped
}
