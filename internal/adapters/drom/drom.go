// Package drom parses drom.ru: review listings link to full review pages,
// the 5kopeek section carries short reviews complete on the listing itself.
package drom

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"auto_reviews/internal/domain"
	"auto_reviews/internal/extract"
)

const siteBase = "https://www.drom.ru"

var errEmptyReview = errors.New("drom: review has no content")

type Site struct{}

func New() *Site { return &Site{} }

func (s *Site) Name() string { return domain.SourceDrom }

func (s *Site) Listings(brand, model string) []domain.Listing {
	b, m := strings.ToLower(brand), strings.ToLower(model)
	return []domain.Listing{
		{Kind: domain.KindReview, URL: fmt.Sprintf("%s/reviews/%s/%s/", siteBase, b, m)},
		{Kind: domain.KindReview, URL: fmt.Sprintf("%s/reviews/%s/%s/5kopeek/", siteBase, b, m)},
	}
}

// ParseListing harvests detail links for full reviews and parses short
// review cards in place; those have no page of their own. Pagination is
// numeric (?page=N) and stops on the first page that yields nothing.
func (s *Site) ParseListing(html, pageURL, brand, model, kind string) domain.ListingPage {
	var lp domain.ListingPage
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return lp
	}

	slug := "/" + strings.ToLower(brand) + "/" + strings.ToLower(model) + "/"
	seen := map[string]struct{}{}
	doc.Find("a[href*='/reviews/']").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		abs := absolute(pageURL, href)
		if !IsReviewURL(abs) || !strings.Contains(abs, slug) {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		lp.Links = append(lp.Links, abs)
	})

	doc.Find("div[data-ftid='short-review-item']").Each(func(_ int, card *goquery.Selection) {
		if rec, ok := shortCard(card, pageURL, brand, model); ok {
			lp.Reviews = append(lp.Reviews, rec)
		}
	})

	if len(lp.Links)+len(lp.Reviews) > 0 {
		lp.NextURL = nextPage(pageURL)
	}
	return lp
}

// ParseReview parses one full review page.
func (s *Site) ParseReview(html, reviewURL, brand, model string) (domain.Review, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.Review{}, err
	}

	title := extract.Normalize(doc.Find("h1").First().Text())
	content := extract.Normalize(doc.Find("[itemprop='reviewBody']").First().Text())
	if content == "" {
		// additions to a review keep their text in an editable area instead
		content = extract.Normalize(doc.Find(".b-editable-area").First().Text())
	}

	pros := extract.Normalize(doc.Find("div[data-ftid='review-content__positive']").First().Text())
	cons := extract.Normalize(doc.Find("div[data-ftid='review-content__negative']").First().Text())
	general := extract.Normalize(doc.Find("div[data-ftid='review-content__general']").First().Text())
	if content == "" {
		content = composeContent(pros, cons, general)
	}
	if title == "" && content == "" {
		return domain.Review{}, errEmptyReview
	}

	if b, m, ok := brandModelFromURL(reviewURL); ok {
		brand, model = b, m
	}
	rec := domain.NewReview(domain.SourceDrom, domain.KindReview, brand, model, reviewURL, title, content)
	if pros != "" {
		rec.Pros = &pros
	}
	if cons != "" {
		rec.Cons = &cons
	}

	if author := findAuthor(doc); author != "" {
		rec.Author = &author
	}
	if f, ok := floatText(doc.Find("span[itemprop='ratingValue']").First()); ok {
		rec.Rating = &f
	} else if f, ok := floatText(doc.Find("span[data-rating-mark-avg]").First()); ok {
		rec.Rating = &f
	}
	if dt, ok := extract.PublishDate(findDate(doc)); ok {
		rec.PublishDate = &dt
	}

	// views / comments / likes sit in three gray counters, in that order
	grays := doc.Find("span.b-text-gray")
	if grays.Length() >= 3 {
		v, e1 := strconv.Atoi(strings.TrimSpace(grays.Eq(0).Text()))
		c, e2 := strconv.Atoi(strings.TrimSpace(grays.Eq(1).Text()))
		l, e3 := strconv.Atoi(strings.TrimSpace(grays.Eq(2).Text()))
		if e1 == nil && e2 == nil && e3 == nil {
			rec.ViewsCount, rec.CommentsCount, rec.LikesCount = &v, &c, &l
		}
	}

	ratings := map[string]int{}
	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td, th")
		if cells.Length() < 2 {
			return
		}
		key := strings.TrimSuffix(extract.Normalize(cells.Eq(0).Text()), ":")
		val := extract.Normalize(cells.Eq(1).Text())
		if key == "" || val == "" || val == "-" {
			return
		}
		if aspectKeys[strings.ToLower(key)] {
			if n, err := strconv.Atoi(val); err == nil {
				ratings[key] = n
				return
			}
		}
		applySpec(&rec, strings.ToLower(key), val)
	})
	if len(ratings) > 0 {
		rec.RatingsJSON, _ = json.Marshal(ratings)
	}

	applyCommon(&rec, extract.CommonFields(title+" "+content))
	return rec, nil
}

// aspect marks live in the same tables as the spec-sheet rows; these four
// keys are the per-aspect 1..5 grades
var aspectKeys = map[string]bool{
	"внешний вид":      true,
	"салон":            true,
	"двигатель":        true,
	"ходовые качества": true,
}

func applySpec(rec *domain.Review, key, val string) {
	switch key {
	case "год выпуска":
		if y, ok := extract.Year(val); ok {
			rec.Year = &y
		}
	case "поколение":
		rec.Generation = &val
	case "кузов", "тип кузова":
		rec.BodyType = &val
	case "кпп", "трансмиссия", "коробка передач":
		if t := extract.Transmission(val); t != "" {
			rec.Transmission = &t
		} else {
			rec.Transmission = &val
		}
	case "привод":
		if d := extract.DriveType(val); d != "" {
			rec.DriveType = &d
		} else {
			rec.DriveType = &val
		}
	case "двигатель":
		if f := extract.FuelType(val); f != "" && rec.FuelType == nil {
			rec.FuelType = &f
		}
		if v, ok := extract.EngineVolume(val); ok && rec.EngineVolume == nil {
			rec.EngineVolume = &v
		}
	case "объем двигателя":
		if v, ok := extract.EngineVolume(val); ok {
			rec.EngineVolume = &v
		}
	case "топливо":
		if f := extract.FuelType(val); f != "" {
			rec.FuelType = &f
		} else {
			rec.FuelType = &val
		}
	case "мощность", "мощность двигателя":
		if p, ok := firstInt(val); ok {
			rec.EnginePower = &p
		}
	case "пробег":
		if km, ok := extract.Mileage(val); ok {
			rec.Mileage = &km
		}
	}
}

func applyCommon(rec *domain.Review, f extract.CarFields) {
	if rec.Year == nil {
		rec.Year = f.Year
	}
	if rec.EngineVolume == nil {
		rec.EngineVolume = f.EngineVolume
	}
	if rec.Mileage == nil {
		rec.Mileage = f.Mileage
	}
	if rec.FuelType == nil && f.FuelType != "" {
		v := f.FuelType
		rec.FuelType = &v
	}
	if rec.Transmission == nil && f.Transmission != "" {
		v := f.Transmission
		rec.Transmission = &v
	}
	if rec.DriveType == nil && f.DriveType != "" {
		v := f.DriveType
		rec.DriveType = &v
	}
}

func shortCard(card *goquery.Selection, pageURL, brand, model string) (domain.Review, bool) {
	id, ok := card.Attr("id")
	if !ok || id == "" {
		return domain.Review{}, false
	}
	pros := extract.Normalize(card.Find("div[data-ftid='short-review-content__positive']").First().Text())
	cons := extract.Normalize(card.Find("div[data-ftid='short-review-content__negative']").First().Text())
	breakages := extract.Normalize(card.Find("div[data-ftid='short-review-content__breakages']").First().Text())
	content := composeContent(pros, cons, breakages)
	if content == "" {
		return domain.Review{}, false
	}

	rec := domain.NewReview(domain.SourceDrom, domain.KindReview, brand, model, cardURL(pageURL, id), "", content)
	if pros != "" {
		rec.Pros = &pros
	}
	if cons != "" {
		rec.Cons = &cons
	}
	if author := extract.Normalize(card.Find("span.css-1u4ddp").First().Text()); author != "" {
		rec.Author = &author
	}
	if y, ok := extract.Year(card.Find("span[data-ftid='short-review-item__year']").First().Text()); ok {
		rec.Year = &y
	}
	if v, ok := extract.EngineVolume(card.Find("span[data-ftid='short-review-item__volume']").First().Text()); ok {
		rec.EngineVolume = &v
	}
	if dt, ok := extract.PublishDate(timeText(card.Find("time").First())); ok {
		rec.PublishDate = &dt
	}
	applyCommon(&rec, extract.CommonFields(card.Text()))
	return rec, true
}

func composeContent(pros, cons, rest string) string {
	var parts []string
	if pros != "" {
		parts = append(parts, "Плюсы: "+pros)
	}
	if cons != "" {
		parts = append(parts, "Минусы: "+cons)
	}
	if rest != "" {
		parts = append(parts, rest)
	}
	return strings.Join(parts, "\n\n")
}

func findAuthor(doc *goquery.Document) string {
	for _, sel := range []string{"[itemprop='author']", ".reviewer [itemprop='name']", "span[itemprop='name']"} {
		if a := extract.Normalize(doc.Find(sel).First().Text()); a != "" {
			return a
		}
	}
	return ""
}

func findDate(doc *goquery.Document) string {
	sel := doc.Find("[itemprop='datePublished']").First()
	if v := strings.TrimSpace(sel.AttrOr("content", "")); v != "" {
		return v
	}
	if v := strings.TrimSpace(sel.Text()); v != "" {
		return v
	}
	return timeText(doc.Find("time").First())
}

func timeText(sel *goquery.Selection) string {
	if v := strings.TrimSpace(sel.AttrOr("datetime", "")); v != "" {
		return v
	}
	return strings.TrimSpace(sel.Text())
}

func floatText(sel *goquery.Selection) (float64, bool) {
	v := strings.TrimSpace(sel.AttrOr("content", ""))
	if v == "" {
		v = strings.TrimSpace(sel.Text())
	}
	v = strings.ReplaceAll(v, ",", ".")
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

var intRe = regexp.MustCompile(`\d+`)

func firstInt(s string) (int, bool) {
	m := intRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	return n, err == nil
}

// IsReviewURL reports whether u points at one concrete review:
// /reviews/<brand>/<model>/<numeric id>/, possibly with addition segments.
func IsReviewURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	if parsed.Host != "" && !strings.HasSuffix(parsed.Host, "drom.ru") {
		return false
	}
	parts := splitPath(parsed.Path)
	if len(parts) < 4 || parts[0] != "reviews" {
		return false
	}
	_, err = strconv.Atoi(parts[3])
	return err == nil
}

func brandModelFromURL(u string) (string, string, bool) {
	parsed, err := url.Parse(u)
	if err != nil {
		return "", "", false
	}
	parts := splitPath(parsed.Path)
	if len(parts) < 3 || parts[0] != "reviews" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

func splitPath(p string) []string {
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

func absolute(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}

func cardURL(pageURL, id string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL + "#" + id
	}
	u.RawQuery = ""
	u.Fragment = id
	return u.String()
}

func nextPage(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	n, _ := strconv.Atoi(q.Get("page"))
	if n < 1 {
		n = 1
	}
	q.Set("page", strconv.Itoa(n+1))
	u.RawQuery = q.Encode()
	return u.String()
}
