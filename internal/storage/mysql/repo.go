package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"auto_reviews/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}
func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Save inserts one record. The unique keys on url and on fingerprint make
// INSERT IGNORE the whole dedup story: zero rows affected means the review
// is already stored, which is a normal outcome, not an error.
func (r *Repo) Save(ctx context.Context, rv domain.Review) (bool, error) {
	res, err := r.db.ExecContext(ctx, insertReviewSQL,
		rv.Source,
		rv.Kind,
		rv.Brand,
		rv.Model,
		valStr(rv.Generation),
		valInt(rv.Year),
		rv.URL,
		rv.Title,
		rv.Content,
		valStr(rv.Author),
		valF64(rv.Rating),
		valStr(rv.Pros),
		valStr(rv.Cons),
		valInt(rv.Mileage),
		valF64(rv.EngineVolume),
		valInt(rv.EnginePower),
		valStr(rv.FuelType),
		valStr(rv.Transmission),
		valStr(rv.BodyType),
		valStr(rv.DriveType),
		valTime(rv.PublishDate),
		valInt(rv.ViewsCount),
		valInt(rv.LikesCount),
		valInt(rv.CommentsCount),
		valJSON(rv.RatingsJSON),
		rv.ParsedAt,
		rv.Fingerprint,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repo) LogMiss(ctx context.Context, url string, status int, reason string) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL, url, status, reason)
	return err
}

func (r *Repo) ExistsByURL(ctx context.Context, url string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, existsByURLSQL, url).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repo) Count(ctx context.Context, f domain.CountFilter) (int64, error) {
	where, args := reviewFilter(f.Brand, f.Model)
	var n int64
	err := r.db.QueryRowContext(ctx, countReviewsSQL+where, args...).Scan(&n)
	return n, err
}

func (r *Repo) Stats(ctx context.Context) (domain.Stats, error) {
	var st domain.Stats
	if err := r.db.QueryRowContext(ctx, statsTotalsSQL).
		Scan(&st.Total, &st.UniqueBrands, &st.UniqueModels); err != nil {
		return domain.Stats{}, err
	}
	var err error
	if st.BySource, err = r.groupCounts(ctx, statsBySourceSQL); err != nil {
		return domain.Stats{}, err
	}
	if st.ByKind, err = r.groupCounts(ctx, statsByKindSQL); err != nil {
		return domain.Stats{}, err
	}
	return st, nil
}

func (r *Repo) groupCounts(ctx context.Context, query string) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var k string
		var n int64
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}

func reviewFilter(brand, model *string) (string, []any) {
	var conds []string
	var args []any
	if brand != nil {
		conds = append(conds, "brand = ?")
		args = append(args, *brand)
	}
	if model != nil {
		conds = append(conds, "model = ?")
		args = append(args, *model)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *Repo) ListReviews(ctx context.Context, q domain.ReviewsQuery) (domain.ReviewsPage, error) {
	where, args := reviewFilter(q.Brand, q.Model)
	args = append(args, q.Limit)
	rows, err := r.db.QueryContext(ctx, listReviewsSQL+where+listReviewsSuffixSQL, args...)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		var rv domain.Review
		var (
			generation   sql.NullString
			year         sql.NullInt64
			author       sql.NullString
			rating       sql.NullFloat64
			pros, cons   sql.NullString
			mileage      sql.NullInt64
			engineVolume sql.NullFloat64
			enginePower  sql.NullInt64
			fuelType     sql.NullString
			transmission sql.NullString
			bodyType     sql.NullString
			driveType    sql.NullString
			publishDate  sql.NullTime
			views        sql.NullInt64
			likes        sql.NullInt64
			comments     sql.NullInt64
			ratingsRaw   sql.RawBytes
		)
		if err := rows.Scan(
			&rv.ID,
			&rv.Source,
			&rv.Kind,
			&rv.Brand,
			&rv.Model,
			&generation,
			&year,
			&rv.URL,
			&rv.Title,
			&rv.Content,
			&author,
			&rating,
			&pros,
			&cons,
			&mileage,
			&engineVolume,
			&enginePower,
			&fuelType,
			&transmission,
			&bodyType,
			&driveType,
			&publishDate,
			&views,
			&likes,
			&comments,
			&ratingsRaw,
			&rv.ParsedAt,
			&rv.Fingerprint,
		); err != nil {
			return domain.ReviewsPage{}, err
		}

		if generation.Valid {
			s := generation.String
			rv.Generation = &s
		}
		if year.Valid {
			y := int(year.Int64)
			rv.Year = &y
		}
		if author.Valid {
			s := author.String
			rv.Author = &s
		}
		if rating.Valid {
			f := rating.Float64
			rv.Rating = &f
		}
		if pros.Valid {
			s := pros.String
			rv.Pros = &s
		}
		if cons.Valid {
			s := cons.String
			rv.Cons = &s
		}
		if mileage.Valid {
			m := int(mileage.Int64)
			rv.Mileage = &m
		}
		if engineVolume.Valid {
			f := engineVolume.Float64
			rv.EngineVolume = &f
		}
		if enginePower.Valid {
			p := int(enginePower.Int64)
			rv.EnginePower = &p
		}
		if fuelType.Valid {
			s := fuelType.String
			rv.FuelType = &s
		}
		if transmission.Valid {
			s := transmission.String
			rv.Transmission = &s
		}
		if bodyType.Valid {
			s := bodyType.String
			rv.BodyType = &s
		}
		if driveType.Valid {
			s := driveType.String
			rv.DriveType = &s
		}
		if publishDate.Valid {
			t := publishDate.Time
			rv.PublishDate = &t
		}
		if views.Valid {
			v := int(views.Int64)
			rv.ViewsCount = &v
		}
		if likes.Valid {
			l := int(likes.Int64)
			rv.LikesCount = &l
		}
		if comments.Valid {
			c := int(comments.Int64)
			rv.CommentsCount = &c
		}
		if len(ratingsRaw) > 0 {
			rv.RatingsJSON = append([]byte(nil), ratingsRaw...)
		}

		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return domain.ReviewsPage{}, err
	}
	return domain.ReviewsPage{Items: out}, nil
}

// -----------------------------------------------------------------------------
// SOURCE QUEUE
// -----------------------------------------------------------------------------

// Seed enqueues one row per (brand, model, source). INSERT IGNORE keeps
// re-seeding cheap: pairs already queued, in flight or done stay untouched.
func (r *Repo) Seed(ctx context.Context, targets []domain.Target) (int, error) {
	if len(targets) == 0 {
		return 0, nil
	}
	sources := []string{domain.SourceDrom, domain.SourceDrive2}
	values := make([]string, 0, len(targets)*len(sources))
	args := make([]any, 0, len(targets)*len(sources)*4)
	for _, t := range targets {
		for _, src := range sources {
			values = append(values, "(?,?,?,?)")
			args = append(args, t.Brand, t.Model, src, 1)
		}
	}
	res, err := r.db.ExecContext(ctx, seedQueuePrefix+strings.Join(values, ","), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Next claims one pending task. The pending -> processing flip is guarded
// by an affected-rows check, so two collectors racing for the same row
// cannot both win it; losing just means picking another row.
func (r *Repo) Next(ctx context.Context) (*domain.SourceTask, error) {
	for {
		var t domain.SourceTask
		err := r.db.QueryRowContext(ctx, nextPendingSQL).
			Scan(&t.ID, &t.Brand, &t.Model, &t.Source)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		res, err := r.db.ExecContext(ctx, claimPendingSQL, t.ID)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 1 {
			return &t, nil
		}
	}
}

func (r *Repo) Complete(ctx context.Context, id int64, pagesDone, reviewsFound int) error {
	_, err := r.db.ExecContext(ctx, completeTaskSQL, pagesDone, reviewsFound, id)
	return err
}

func (r *Repo) Fail(ctx context.Context, id int64, reason string) error {
	_, err := r.db.ExecContext(ctx, failTaskSQL, reason, id)
	return err
}

func (r *Repo) QueueStats(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, queueStatsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}
