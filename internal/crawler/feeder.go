package crawler

import (
	"net/url"
	"strconv"
)

// PageSize is the number of results one image-search page carries.
const PageSize = 100

// PageURLs returns the search result pages needed to see maxNum images,
// in the order they should be visited.
func PageURLs(searchURL, query string, maxNum int) []string {
	var pages []string
	for start := 0; start < maxNum; start += PageSize {
		params := url.Values{}
		params.Set("q", query)
		params.Set("ijn", strconv.Itoa(start/PageSize))
		params.Set("start", strconv.Itoa(start))
		params.Set("tbm", "isch")
		pages = append(pages, searchURL+"?"+params.Encode())
	}
	return pages
}
