package cmd

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/andresmejia3/facekit/internal/crawler"
	"github.com/andresmejia3/facekit/internal/storage"
	"github.com/andresmejia3/facekit/internal/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type crawlOptions struct {
	Query string
	Count int
}

var crawlOpts crawlOptions

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Download face images of a person from web image search",
	Long: `Searches for the given name and downloads up to --count images into
<originals>/<name_with_underscores>/ as 000001.jpg, 000002.png, ...
Missing --query or --count values are asked for interactively.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runCrawl(cmd.Context(), crawlOpts)
	},
}

func init() {
	crawlCmd.Flags().StringVarP(&crawlOpts.Query, "query", "q", "", "Search query (person's name)")
	crawlCmd.Flags().IntVarP(&crawlOpts.Count, "count", "n", 0, "Number of images to download")
	crawlCmd.Flags().IntVarP(&cfg.CrawlThreads, "threads", "t", cfg.CrawlThreads, "Parallel downloads")
	crawlCmd.Flags().StringVar(&cfg.Storage, "storage", cfg.Storage, "Where to save images: disk (default) or s3://bucket/prefix")
	crawlCmd.Flags().DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "Per-request timeout")
	crawlCmd.Flags().IntVar(&cfg.MinImageBytes, "min-bytes", cfg.MinImageBytes, "Skip downloads smaller than this many bytes")
	crawlCmd.Flags().IntVar(&cfg.MaxImageBytes, "max-bytes", cfg.MaxImageBytes, "Skip downloads of this many bytes or more (treated as truncated)")
	crawlCmd.Flags().StringVar(&cfg.SearchURL, "search-url", cfg.SearchURL, "Image search endpoint")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(ctx context.Context, opts crawlOptions) error {
	if opts.Query == "" {
		q, err := prompt(stdin, "Enter the search query (person's name): ")
		if err != nil {
			return err
		}
		opts.Query = q
	}
	if opts.Query == "" {
		return fmt.Errorf("search query must not be empty")
	}

	if opts.Count == 0 {
		answer, err := prompt(stdin, "Enter the number of images to download: ")
		if err != nil {
			return err
		}
		if opts.Count, err = parseCount(answer); err != nil {
			return err
		}
	}
	if opts.Count < 0 {
		return crawler.ErrInvalidCount
	}

	personDir := utils.PersonDirName(opts.Query)
	st, err := storage.Open(cfg.Storage, cfg.OriginalsDir, personDir, storage.S3Options{
		Region:   cfg.S3Region,
		Endpoint: cfg.S3Endpoint,
	})
	if err != nil {
		utils.ShowError("Failed to prepare image storage", err, nil)
		return err
	}

	c := crawler.New(st, crawler.Options{
		SearchURL: cfg.SearchURL,
		Threads:   cfg.CrawlThreads,
		Timeout:   cfg.RequestTimeout,
		UserAgent: cfg.UserAgent,
		MinBytes:  cfg.MinImageBytes,
		MaxBytes:  cfg.MaxImageBytes,
	})
	if cfg.DebugMode {
		c.Out = os.Stderr
	}

	bar := progressbar.NewOptions(opts.Count,
		progressbar.OptionSetDescription("🕸️  Crawling"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	// Downloads finish on several goroutines; the pgx connection is single-user.
	var ledgerMu sync.Mutex
	c.OnSaved = func(s crawler.Saved) error {
		bar.Add(1)
		if DB == nil {
			return nil
		}
		ledgerMu.Lock()
		defer ledgerMu.Unlock()
		return DB.RecordImage(ctx, personDir, s.URL, s.Location, s.ContentType, s.Size, s.SHA256)
	}

	fmt.Fprintf(os.Stderr, "🔎 Searching images for '%s'...\n", opts.Query)
	res, err := c.Crawl(ctx, opts.Query, opts.Count)
	bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		utils.ShowError("Crawl failed", err, nil)
		return err
	}

	if res.Failed > 0 {
		fmt.Fprintf(os.Stderr, "⚠️  %d candidate URLs were skipped\n", res.Failed)
	}
	fmt.Printf("Downloaded %d/%d images for '%s' to '%s'\n", len(res.Saved), opts.Count, opts.Query, st.Root())
	return nil
}
