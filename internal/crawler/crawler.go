package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/andresmejia3/facekit/internal/storage"
	"github.com/andresmejia3/facekit/internal/utils"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gocolly/colly/v2"
)

var ErrInvalidCount = errors.New("image count must be a positive integer")

// Options tunes the search-and-download pass.
type Options struct {
	SearchURL string
	Threads   int
	Timeout   time.Duration
	UserAgent string
	// MinBytes drops responses with fewer body bytes; thumbnails and
	// tracking pixels are usually tiny.
	MinBytes int
	// MaxBytes caps a download. A body that reaches it was cut short by the
	// reader and is dropped. 0 means DefaultMaxBytes.
	MaxBytes int
}

// DefaultMaxBytes replaces colly's 10 MiB default, which truncates camera originals.
const DefaultMaxBytes = 32 << 20

// Saved is one image written to storage.
type Saved struct {
	URL         string
	Name        string
	Location    string
	ContentType string
	Size        int
	SHA256      string
}

// Result summarises a crawl.
type Result struct {
	Requested  int
	Candidates int
	Saved      []Saved
	Failed     int
}

// Crawler finds image URLs on search result pages and downloads them
// into a Storage until the requested count is reached.
type Crawler struct {
	opts  Options
	store storage.Storage
	// Out receives per-URL failure lines; nil discards them.
	Out io.Writer
	// OnSaved, if set, runs after every successful save. An error stops the crawl.
	OnSaved func(Saved) error
}

func New(store storage.Storage, opts Options) *Crawler {
	if opts.Threads <= 0 {
		opts.Threads = 1
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	return &Crawler{opts: opts, store: store}
}

func (c *Crawler) out() io.Writer {
	if c.Out == nil {
		return io.Discard
	}
	return c.Out
}

func (c *Crawler) collector() *colly.Collector {
	col := colly.NewCollector(colly.UserAgent(c.opts.UserAgent))
	if c.opts.Timeout > 0 {
		col.SetRequestTimeout(c.opts.Timeout)
	}
	return col
}

// Search visits result pages until maxNum candidate URLs are collected or
// the pages run out.
func (c *Crawler) Search(ctx context.Context, query string, maxNum int) ([]string, error) {
	if maxNum <= 0 {
		return nil, ErrInvalidCount
	}

	col := c.collector()
	seen := make(map[string]bool)
	var urls []string
	col.OnHTML("script", func(e *colly.HTMLElement) {
		for _, u := range ParseImageURLs(e.Text) {
			if !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
		}
	})
	col.OnError(func(r *colly.Response, err error) {
		fmt.Fprintf(c.out(), "⚠️  Search page failed (%s): %v\n", r.Request.URL, err)
	})

	for _, page := range PageURLs(c.opts.SearchURL, query, maxNum) {
		if err := ctx.Err(); err != nil {
			return urls, err
		}
		if len(urls) >= maxNum {
			break
		}
		before := len(urls)
		if err := col.Visit(page); err != nil {
			// OnError has already reported it; stop paging.
			break
		}
		if len(urls) == before {
			// No new results; later pages will not have any either.
			break
		}
	}
	return urls, nil
}

// Download fetches candidates in parallel and saves the first maxNum valid
// images as 000001.<ext>, 000002.<ext>, ... Non-image responses and failed
// requests are counted and skipped. A storage error aborts the run.
func (c *Crawler) Download(ctx context.Context, candidates []string, maxNum int) (Result, error) {
	res := Result{Requested: maxNum, Candidates: len(candidates)}
	if maxNum <= 0 {
		return res, ErrInvalidCount
	}

	col := c.collector()
	col.Async = true
	col.MaxBodySize = c.opts.MaxBytes
	if err := col.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: c.opts.Threads}); err != nil {
		return res, err
	}

	var (
		mu       sync.Mutex
		reserved int
		fatal    error
	)
	done := func() bool {
		return reserved >= maxNum || fatal != nil || ctx.Err() != nil
	}

	col.OnRequest(func(r *colly.Request) {
		mu.Lock()
		stop := done()
		mu.Unlock()
		if stop {
			r.Abort()
		}
	})
	col.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		res.Failed++
		mu.Unlock()
		fmt.Fprintf(c.out(), "⚠️  Download failed (%s): %v\n", r.Request.URL, err)
	})
	col.OnResponse(func(r *colly.Response) {
		if len(r.Body) >= c.opts.MaxBytes {
			mu.Lock()
			res.Failed++
			mu.Unlock()
			fmt.Fprintf(c.out(), "⚠️  Too large (over %d bytes): %s\n", c.opts.MaxBytes, r.Request.URL)
			return
		}
		mt := mimetype.Detect(r.Body)
		if !strings.HasPrefix(mt.String(), "image/") {
			mu.Lock()
			res.Failed++
			mu.Unlock()
			fmt.Fprintf(c.out(), "⚠️  Not an image (%s): %s\n", mt.String(), r.Request.URL)
			return
		}
		if len(r.Body) < c.opts.MinBytes {
			mu.Lock()
			res.Failed++
			mu.Unlock()
			fmt.Fprintf(c.out(), "⚠️  Too small (%d bytes): %s\n", len(r.Body), r.Request.URL)
			return
		}

		mu.Lock()
		if done() {
			mu.Unlock()
			return
		}
		reserved++
		idx := reserved
		mu.Unlock()

		saved := Saved{
			URL:         r.Request.URL.String(),
			Name:        fmt.Sprintf("%06d%s", idx, mt.Extension()),
			ContentType: mt.String(),
			Size:        len(r.Body),
			SHA256:      utils.BytesSHA256(r.Body),
		}
		loc, err := c.store.Save(ctx, saved.Name, r.Body, saved.ContentType)
		saved.Location = loc
		if err == nil && c.OnSaved != nil {
			err = c.OnSaved(saved)
		}

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if fatal == nil {
				fatal = fmt.Errorf("save %s: %w", saved.Name, err)
			}
			return
		}
		res.Saved = append(res.Saved, saved)
	})

	for _, u := range candidates {
		mu.Lock()
		stop := done()
		mu.Unlock()
		if stop {
			break
		}
		if err := col.Visit(u); err != nil {
			mu.Lock()
			res.Failed++
			mu.Unlock()
		}
	}
	col.Wait()

	sort.Slice(res.Saved, func(i, j int) bool { return res.Saved[i].Name < res.Saved[j].Name })
	if fatal != nil {
		return res, fatal
	}
	return res, ctx.Err()
}

// Crawl runs Search followed by Download.
func (c *Crawler) Crawl(ctx context.Context, query string, maxNum int) (Result, error) {
	candidates, err := c.Search(ctx, query, maxNum)
	if err != nil {
		return Result{Requested: maxNum, Candidates: len(candidates)}, err
	}
	return c.Download(ctx, candidates, maxNum)
}
