//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"auto_reviews/internal/domain"
	mysqlrepo "auto_reviews/internal/storage/mysql"
)

// ---------- small helpers ----------
func pstr(s string) *string     { return &s }
func pint(i int) *int           { return &i }
func pfloat(f float64) *float64 { return &f }

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// ---------- the test ----------
func TestRepo_MySQL_SaveAndQueue(t *testing.T) {
	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=auto_reviews",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "auto_reviews")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	repo := mysqlrepo.New(db)
	ctx := context.Background()

	// --- Save: new row, url duplicate, fingerprint duplicate ---

	base := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
	mk := func(source, kind, brand, model, url string, at time.Time) domain.Review {
		rec := domain.NewReview(source, kind, brand, model, url, "title "+url, "content "+url)
		rec.ParsedAt = at
		return rec
	}

	r1 := mk(domain.SourceDrom, domain.KindReview, "toyota", "camry",
		"https://www.drom.ru/reviews/toyota/camry/1/", base)
	r1.Generation = pstr("XV70")
	r1.Year = pint(2019)
	r1.Author = pstr("Иван")
	r1.Rating = pfloat(4.6)
	r1.Pros = pstr("Комфорт")
	r1.Cons = pstr("Расход")
	r1.Mileage = pint(85000)
	r1.EngineVolume = pfloat(2.0)
	r1.EnginePower = pint(150)
	r1.FuelType = pstr("бензин")
	r1.Transmission = pstr("автомат")
	r1.BodyType = pstr("седан")
	r1.DriveType = pstr("передний")
	pd := time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)
	r1.PublishDate = &pd
	r1.ViewsCount = pint(1500)
	r1.LikesCount = pint(87)
	r1.CommentsCount = pint(23)
	r1.RatingsJSON = json.RawMessage(`{"Салон": 4, "Двигатель": 5}`)

	inserted, err := repo.Save(ctx, r1)
	if err != nil || !inserted {
		t.Fatalf("first save: inserted=%v err=%v", inserted, err)
	}
	inserted, err = repo.Save(ctx, r1)
	if err != nil || inserted {
		t.Fatalf("url duplicate: inserted=%v err=%v", inserted, err)
	}

	fpDup := mk(domain.SourceDrom, domain.KindReview, "toyota", "camry",
		"https://www.drom.ru/reviews/toyota/camry/2/", base)
	fpDup.Fingerprint = r1.Fingerprint
	inserted, err = repo.Save(ctx, fpDup)
	if err != nil || inserted {
		t.Fatalf("fingerprint duplicate: inserted=%v err=%v", inserted, err)
	}

	r2 := mk(domain.SourceDrom, domain.KindReview, "toyota", "corolla",
		"https://www.drom.ru/reviews/toyota/corolla/3/", base.Add(time.Minute))
	r3 := mk(domain.SourceDrive2, domain.KindJournal, "lada", "vesta",
		"https://www.drive2.ru/l/456/", base.Add(2*time.Minute))
	for _, r := range []domain.Review{r2, r3} {
		if inserted, err := repo.Save(ctx, r); err != nil || !inserted {
			t.Fatalf("save %s: inserted=%v err=%v", r.URL, inserted, err)
		}
	}

	// --- ExistsByURL ---

	if ok, err := repo.ExistsByURL(ctx, r1.URL); err != nil || !ok {
		t.Fatalf("ExistsByURL known: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.ExistsByURL(ctx, "https://www.drom.ru/reviews/kia/rio/9/"); err != nil || ok {
		t.Fatalf("ExistsByURL unknown: ok=%v err=%v", ok, err)
	}

	// --- Count with filters ---

	toyota, camry := "toyota", "camry"
	if n, err := repo.Count(ctx, domain.CountFilter{}); err != nil || n != 3 {
		t.Fatalf("count all: n=%d err=%v", n, err)
	}
	if n, err := repo.Count(ctx, domain.CountFilter{Brand: &toyota}); err != nil || n != 2 {
		t.Fatalf("count brand: n=%d err=%v", n, err)
	}
	if n, err := repo.Count(ctx, domain.CountFilter{Brand: &toyota, Model: &camry}); err != nil || n != 1 {
		t.Fatalf("count brand+model: n=%d err=%v", n, err)
	}

	// --- Stats ---

	st, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 3 || st.UniqueBrands != 2 || st.UniqueModels != 3 {
		t.Fatalf("stats totals: %+v", st)
	}
	if st.BySource[domain.SourceDrom] != 2 || st.BySource[domain.SourceDrive2] != 1 {
		t.Fatalf("stats by source: %+v", st.BySource)
	}
	if st.ByKind[domain.KindReview] != 2 || st.ByKind[domain.KindJournal] != 1 {
		t.Fatalf("stats by kind: %+v", st.ByKind)
	}

	// --- ListReviews: order, filters, full field round-trip ---

	page, err := repo.ListReviews(ctx, domain.ReviewsQuery{Limit: 10})
	if err != nil {
		t.Fatalf("ListReviews: %v", err)
	}
	if len(page.Items) != 3 || page.Items[0].URL != r3.URL || page.Items[2].URL != r1.URL {
		t.Fatalf("list order: %+v", page.Items)
	}

	page, err = repo.ListReviews(ctx, domain.ReviewsQuery{Brand: &toyota, Model: &camry, Limit: 10})
	if err != nil || len(page.Items) != 1 {
		t.Fatalf("list filtered: n=%d err=%v", len(page.Items), err)
	}
	got := page.Items[0]
	if got.Source != r1.Source || got.Kind != r1.Kind || got.Title != r1.Title || got.Content != r1.Content {
		t.Fatalf("identity fields: %+v", got)
	}
	if got.Generation == nil || *got.Generation != "XV70" ||
		got.Year == nil || *got.Year != 2019 ||
		got.Author == nil || *got.Author != "Иван" ||
		got.Rating == nil || *got.Rating != 4.6 {
		t.Fatalf("car fields: %+v", got)
	}
	if got.Mileage == nil || *got.Mileage != 85000 ||
		got.EngineVolume == nil || *got.EngineVolume != 2.0 ||
		got.EnginePower == nil || *got.EnginePower != 150 {
		t.Fatalf("numeric fields: %+v", got)
	}
	if got.FuelType == nil || *got.FuelType != "бензин" ||
		got.Transmission == nil || *got.Transmission != "автомат" ||
		got.BodyType == nil || *got.BodyType != "седан" ||
		got.DriveType == nil || *got.DriveType != "передний" {
		t.Fatalf("label fields: %+v", got)
	}
	if got.PublishDate == nil || !got.PublishDate.Equal(pd) {
		t.Fatalf("publish date: %v", got.PublishDate)
	}
	if got.ViewsCount == nil || *got.ViewsCount != 1500 ||
		got.LikesCount == nil || *got.LikesCount != 87 ||
		got.CommentsCount == nil || *got.CommentsCount != 23 {
		t.Fatalf("counter fields: %+v", got)
	}
	var marks map[string]int
	if err := json.Unmarshal(got.RatingsJSON, &marks); err != nil || marks["Салон"] != 4 || marks["Двигатель"] != 5 {
		t.Fatalf("ratings json: %s err=%v", got.RatingsJSON, err)
	}
	if got.Fingerprint != r1.Fingerprint {
		t.Fatalf("fingerprint: %s", got.Fingerprint)
	}

	// --- LogMiss upserts on repeated urls ---

	missURL := "https://www.drom.ru/reviews/toyota/camry/404/"
	if err := repo.LogMiss(ctx, missURL, 404, "not found"); err != nil {
		t.Fatalf("LogMiss: %v", err)
	}
	if err := repo.LogMiss(ctx, missURL, 403, "blocked"); err != nil {
		t.Fatalf("LogMiss repeat: %v", err)
	}
	var misses int
	if err := db.QueryRow("SELECT COUNT(*) FROM fetch_misses").Scan(&misses); err != nil || misses != 1 {
		t.Fatalf("fetch_misses rows: n=%d err=%v", misses, err)
	}

	// --- Queue: seed, claim, complete, fail, stats ---

	targets := []domain.Target{{Brand: "toyota", Model: "camry"}, {Brand: "lada", Model: "vesta"}}
	seeded, err := repo.Seed(ctx, targets)
	if err != nil || seeded != 4 {
		t.Fatalf("seed: n=%d err=%v", seeded, err)
	}
	seeded, err = repo.Seed(ctx, targets)
	if err != nil || seeded != 0 {
		t.Fatalf("re-seed: n=%d err=%v", seeded, err)
	}

	t1, err := repo.Next(ctx)
	if err != nil || t1 == nil {
		t.Fatalf("next: task=%v err=%v", t1, err)
	}
	if t1.Brand == "" || t1.Model == "" || t1.Source == "" {
		t.Fatalf("claimed task incomplete: %+v", t1)
	}
	if err := repo.Complete(ctx, t1.ID, 3, 25); err != nil {
		t.Fatalf("complete: %v", err)
	}
	var status string
	var pages, found int
	if err := db.QueryRow("SELECT status, pages_done, reviews_found FROM sources_queue WHERE id = ?", t1.ID).
		Scan(&status, &pages, &found); err != nil {
		t.Fatalf("read completed task: %v", err)
	}
	if status != "completed" || pages != 3 || found != 25 {
		t.Fatalf("completed task: status=%s pages=%d found=%d", status, pages, found)
	}

	t2, err := repo.Next(ctx)
	if err != nil || t2 == nil {
		t.Fatalf("next: task=%v err=%v", t2, err)
	}
	if err := repo.Fail(ctx, t2.ID, "blocked by portal"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	for i := 0; i < 2; i++ {
		tk, err := repo.Next(ctx)
		if err != nil || tk == nil {
			t.Fatalf("next %d: task=%v err=%v", i, tk, err)
		}
	}
	if tk, err := repo.Next(ctx); err != nil || tk != nil {
		t.Fatalf("drained queue: task=%v err=%v", tk, err)
	}

	qs, err := repo.QueueStats(ctx)
	if err != nil {
		t.Fatalf("QueueStats: %v", err)
	}
	if qs["completed"] != 1 || qs["failed"] != 1 || qs["processing"] != 2 {
		t.Fatalf("queue stats: %+v", qs)
	}
}
