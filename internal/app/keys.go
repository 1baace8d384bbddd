package app

import (
	"fmt"

	"auto_reviews/internal/domain"
)

const (
	statusKey           = "status"
	defaultReviewsLimit = 50
	maxReviewsLimit     = 200
)

// reviewsKey is stable for equal queries; a nil filter and an unset one
// produce the same shape.
func reviewsKey(q domain.ReviewsQuery) string {
	b, m := "", ""
	if q.Brand != nil {
		b = *q.Brand
	}
	if q.Model != nil {
		m = *q.Model
	}
	return fmt.Sprintf("reviews:%s:%s:%d", b, m, q.Limit)
}
