package domain

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"time"
)

const (
	SourceDrom   = "drom.ru"
	SourceDrive2 = "drive2.ru"

	KindReview  = "review"
	KindJournal = "journal"
)

// Review is one parsed review or journal entry. Optional fields stay nil
// when the page or the text heuristics gave nothing; partial records are
// valid output.
type Review struct {
	ID            int64
	Source        string // drom.ru | drive2.ru
	Kind          string // review | journal
	Brand         string
	Model         string
	Generation    *string
	Year          *int
	URL           string
	Title         string
	Content       string
	Author        *string
	Rating        *float64
	Pros          *string
	Cons          *string
	Mileage       *int // km
	EngineVolume  *float64
	EnginePower   *int
	FuelType      *string
	Transmission  *string
	BodyType      *string
	DriveType     *string
	PublishDate   *time.Time
	ViewsCount    *int
	LikesCount    *int
	CommentsCount *int
	RatingsJSON   json.RawMessage // {"Внешний вид":5,...} per-aspect marks, optional
	ParsedAt      time.Time
	Fingerprint   string
}

// NewReview stamps ParsedAt and computes the content fingerprint. Both are
// fixed at construction; a record is inserted or discarded, never updated.
func NewReview(source, kind, brand, model, url, title, content string) Review {
	return Review{
		Source:      source,
		Kind:        kind,
		Brand:       brand,
		Model:       model,
		URL:         url,
		Title:       title,
		Content:     content,
		ParsedAt:    time.Now().UTC(),
		Fingerprint: Fingerprint(url, title, content),
	}
}

// Fingerprint derives the dedup identity from the URL, title, and the first
// 100 characters of content. Reviews equal on that triple are the same
// review even if later content differs. Stability matters here, secrecy
// does not, so MD5 is fine.
func Fingerprint(url, title, content string) string {
	sum := md5.Sum([]byte(url + "_" + title + "_" + contentPrefix(content)))
	return hex.EncodeToString(sum[:])
}

func contentPrefix(s string) string {
	r := []rune(s)
	if len(r) <= 100 {
		return s
	}
	return string(r[:100])
}
