package domain

import "context"

type ReviewRepository interface {
	// Write paths
	Save(ctx context.Context, r Review) (inserted bool, err error)
	LogMiss(ctx context.Context, url string, status int, reason string) error

	// Read paths
	ExistsByURL(ctx context.Context, url string) (bool, error)
	Count(ctx context.Context, f CountFilter) (int64, error)
	Stats(ctx context.Context) (Stats, error)
	ListReviews(ctx context.Context, q ReviewsQuery) (ReviewsPage, error)
}

type SourceQueue interface {
	Seed(ctx context.Context, targets []Target) (int, error)
	Next(ctx context.Context) (*SourceTask, error) // nil when drained
	Complete(ctx context.Context, id int64, pagesDone, reviewsFound int) error
	Fail(ctx context.Context, id int64, reason string) error
	QueueStats(ctx context.Context) (map[string]int, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Fetcher hands back a page body for a URL. Everything network-shaped
// (retries, rate limits, user agents) lives behind it; parsers and the
// extract helpers only ever see text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Site is one supported portal: it knows where the listings for a
// brand/model live and how to turn a fetched listing page into records,
// detail links and the next page.
type Site interface {
	Name() string
	Listings(brand, model string) []Listing
	ParseListing(html, baseURL, brand, model, kind string) ListingPage
}

// DetailSite is implemented by portals whose listing pages only carry
// links; each linked page is fetched and parsed on its own.
type DetailSite interface {
	ParseReview(html, url, brand, model string) (Review, error)
}

// Listing is the entry point of one content section on a portal, e.g. the
// review listing or the logbook feed for a brand/model pair.
type Listing struct {
	Kind string
	URL  string
}

// ListingPage is what one fetched listing page yields. Reviews holds
// records complete enough to store as-is, Links holds detail pages still
// worth fetching, NextURL is empty on the last page.
type ListingPage struct {
	Reviews []Review
	Links   []string
	NextURL string
}

// Read models & queries

type Target struct {
	Brand string
	Model string
}

type SourceTask struct {
	ID     int64
	Brand  string
	Model  string
	Source string
}

type CountFilter struct {
	Brand *string
	Model *string
}

type Stats struct {
	Total        int64
	BySource     map[string]int64
	ByKind       map[string]int64
	UniqueBrands int64
	UniqueModels int64
}

type ReviewsQuery struct {
	Brand *string
	Model *string
	Limit int
}

type ReviewsPage struct {
	Items []Review
}

// StatusView is the API-facing snapshot: stored-review aggregates plus the
// state of the collection queue.
type StatusView struct {
	Reviews Stats
	Queue   map[string]int
}
