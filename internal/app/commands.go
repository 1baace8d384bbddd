package app

import (
	"context"
	"errors"
	"fmt"

	"auto_reviews/internal/adapters/observability"
	"auto_reviews/internal/domain"
)

// Limits bounds one collection task.
type Limits struct {
	// PagesPerSource caps listing pages walked per section; <=0 means no cap.
	PagesPerSource int
	// MaxPerModel stops a brand/model once the store holds that many rows;
	// <=0 means no cap.
	MaxPerModel int
}

// CollectResult is the outcome of one task.
type CollectResult struct {
	Pages      int // listing pages fetched
	Found      int // records and detail links seen on them
	Saved      int // new rows inserted
	Duplicates int // insert hit an existing url or fingerprint
	Skipped    int // detail links not fetched because the url is already stored
}

// IngestionService walks a portal's listings for one brand/model task and
// stores whatever parses. A missing or forbidden page degrades to a logged
// miss; anything else aborts the task so the queue can retry it later.
type IngestionService struct {
	fetcher domain.Fetcher
	sites   map[string]domain.Site
	repo    domain.ReviewRepository
	cache   domain.Cache
}

func NewIngestionService(f domain.Fetcher, sites []domain.Site, r domain.ReviewRepository, cache domain.Cache) *IngestionService {
	m := make(map[string]domain.Site, len(sites))
	for _, st := range sites {
		m[st.Name()] = st
	}
	return &IngestionService{fetcher: f, sites: m, repo: r, cache: cache}
}

func (s *IngestionService) CollectSource(ctx context.Context, task domain.SourceTask, lim Limits) (res CollectResult, err error) {
	site, ok := s.sites[task.Source]
	if !ok {
		return res, fmt.Errorf("unknown source %q", task.Source)
	}

	stored, err := s.repo.Count(ctx, domain.CountFilter{Brand: &task.Brand, Model: &task.Model})
	if err != nil {
		return res, err
	}
	full := func() bool {
		return lim.MaxPerModel > 0 && stored+int64(res.Saved) >= int64(lim.MaxPerModel)
	}
	if full() {
		return res, nil
	}

	defer func() {
		if res.Saved > 0 && s.cache != nil {
			s.invalidate(ctx, task)
		}
	}()

	detail, _ := site.(domain.DetailSite)

	for _, listing := range site.Listings(task.Brand, task.Model) {
		pageURL := listing.URL
		for page := 1; pageURL != "" && (lim.PagesPerSource <= 0 || page <= lim.PagesPerSource); page++ {
			html, ferr := s.fetcher.Fetch(ctx, pageURL)
			if ferr != nil {
				if errors.Is(ferr, domain.ErrNotFound) {
					// section missing for this model, e.g. an empty logbook
					_ = s.repo.LogMiss(ctx, pageURL, 404, "listing")
					break
				}
				if errors.Is(ferr, domain.ErrForbidden) {
					_ = s.repo.LogMiss(ctx, pageURL, 403, "listing")
					break
				}
				return res, ferr
			}
			res.Pages++

			lp := site.ParseListing(html, pageURL, task.Brand, task.Model, listing.Kind)
			res.Found += len(lp.Reviews) + len(lp.Links)

			for _, rec := range lp.Reviews {
				if err := s.store(ctx, &res, rec); err != nil {
					return res, err
				}
				if full() {
					return res, nil
				}
			}

			if detail != nil {
				done, derr := s.collectDetails(ctx, &res, detail, task, lp.Links, full)
				if derr != nil {
					return res, derr
				}
				if done {
					return res, nil
				}
			}

			pageURL = lp.NextURL
		}
	}
	return res, nil
}

// collectDetails fetches and stores each linked review page. done is true
// once the model hit its cap.
func (s *IngestionService) collectDetails(ctx context.Context, res *CollectResult, detail domain.DetailSite, task domain.SourceTask, links []string, full func() bool) (done bool, err error) {
	for _, link := range links {
		exists, err := s.repo.ExistsByURL(ctx, link)
		if err != nil {
			return false, err
		}
		if exists {
			res.Skipped++
			continue
		}

		html, err := s.fetcher.Fetch(ctx, link)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				_ = s.repo.LogMiss(ctx, link, 404, "review")
				continue
			}
			if errors.Is(err, domain.ErrForbidden) {
				_ = s.repo.LogMiss(ctx, link, 403, "review")
				continue
			}
			return false, err
		}

		rec, perr := detail.ParseReview(html, link, task.Brand, task.Model)
		if perr != nil {
			// the page came back fine but held nothing usable
			_ = s.repo.LogMiss(ctx, link, 200, "parse")
			continue
		}
		if err := s.store(ctx, res, rec); err != nil {
			return false, err
		}
		if full() {
			return true, nil
		}
	}
	return false, nil
}

func (s *IngestionService) store(ctx context.Context, res *CollectResult, rec domain.Review) error {
	inserted, err := s.repo.Save(ctx, rec)
	if err != nil {
		return err
	}
	if inserted {
		res.Saved++
	} else {
		res.Duplicates++
	}
	observability.ObserveReviewSaved(rec.Source, inserted)
	return nil
}

// invalidate drops the cached status snapshot and the review list shapes
// that can see this model.
func (s *IngestionService) invalidate(ctx context.Context, task domain.SourceTask) {
	_ = s.cache.Del(ctx, statusKey)
	brand, model := task.Brand, task.Model
	for _, q := range []domain.ReviewsQuery{
		{Limit: defaultReviewsLimit},
		{Brand: &brand, Limit: defaultReviewsLimit},
		{Brand: &brand, Model: &model, Limit: defaultReviewsLimit},
	} {
		_ = s.cache.Del(ctx, reviewsKey(q))
	}
}
