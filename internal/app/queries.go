package app

import (
	"context"
	"encoding/json"
	"time"

	"auto_reviews/internal/domain"
)

type QueryService struct {
	repo     domain.ReviewRepository
	queue    domain.SourceQueue
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.ReviewRepository, q domain.SourceQueue, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, queue: q, cache: c, cacheTTL: ttl}
}

// Status returns stored-review aggregates plus queue state, cached as one
// snapshot under a single key.
func (s *QueryService) Status(ctx context.Context) (domain.StatusView, error) {
	var sv domain.StatusView
	if ok, _ := s.cache.Get(ctx, statusKey, &sv); ok {
		return sv, nil
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return domain.StatusView{}, err
	}
	queue, err := s.queue.QueueStats(ctx)
	if err != nil {
		return domain.StatusView{}, err
	}

	sv = domain.StatusView{Reviews: stats, Queue: queue}
	_ = s.cache.Set(ctx, statusKey, sv, int(s.cacheTTL.Seconds()))
	return sv, nil
}

func (s *QueryService) Reviews(ctx context.Context, q domain.ReviewsQuery) (domain.ReviewsPage, error) {
	if q.Limit <= 0 {
		q.Limit = defaultReviewsLimit
	}
	if q.Limit > maxReviewsLimit {
		q.Limit = maxReviewsLimit
	}

	key := reviewsKey(q)
	var out domain.ReviewsPage
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}

	page, err := s.repo.ListReviews(ctx, q)
	if err != nil {
		return domain.ReviewsPage{}, err
	}

	// copy so later mutation of the repo's backing array cannot leak into
	// the cached value
	cp := deepCopyReviewsPage(page)
	if b, _ := json.Marshal(cp); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, cp, int(s.cacheTTL.Seconds()))
	}
	return cp, nil
}

func deepCopyReviewsPage(in domain.ReviewsPage) domain.ReviewsPage {
	var out domain.ReviewsPage
	if n := len(in.Items); n > 0 {
		out.Items = make([]domain.Review, n)
		copy(out.Items, in.Items)
	}
	return out
}
