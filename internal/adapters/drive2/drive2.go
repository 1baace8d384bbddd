// Package drive2 parses drive2.ru. Owner experience and logbook cards are
// complete on the listing page, so no detail pages are ever fetched.
package drive2

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"auto_reviews/internal/domain"
	"auto_reviews/internal/extract"
)

const siteBase = "https://www.drive2.ru"

type Site struct{}

func New() *Site { return &Site{} }

func (s *Site) Name() string { return domain.SourceDrive2 }

func (s *Site) Listings(brand, model string) []domain.Listing {
	b, m := strings.ToLower(brand), strings.ToLower(model)
	return []domain.Listing{
		{Kind: domain.KindReview, URL: fmt.Sprintf("%s/experience/%s/%s/", siteBase, b, m)},
		{Kind: domain.KindJournal, URL: fmt.Sprintf("%s/cars/%s/%s/logbook/", siteBase, b, m)},
	}
}

// ParseListing parses every card on the page. Pagination follows the next
// link; a page without cards ends the walk even if a next link is present.
func (s *Site) ParseListing(html, pageURL, brand, model, kind string) domain.ListingPage {
	var lp domain.ListingPage
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return lp
	}

	sel := ".c-car-card"
	if kind == domain.KindJournal {
		sel = ".c-post-card, .c-logbook-card"
	}
	found := 0
	doc.Find(sel).Each(func(_ int, card *goquery.Selection) {
		found++
		if rec, ok := parseCard(card, pageURL, brand, model, kind); ok {
			lp.Reviews = append(lp.Reviews, rec)
		}
	})

	if found > 0 {
		lp.NextURL = nextURL(doc, pageURL)
	}
	return lp
}

func parseCard(card *goquery.Selection, pageURL, brand, model, kind string) (domain.Review, bool) {
	link := card.Find("a.c-car-card__caption").First()
	if link.Length() == 0 {
		link = card.Find("a.c-post-card__title").First()
	}
	if link.Length() == 0 {
		link = card.Find("h3 a").First()
	}
	href := strings.TrimSpace(link.AttrOr("href", ""))
	if href == "" {
		// a card without a link has no identity to dedup on
		return domain.Review{}, false
	}

	title := extract.Normalize(link.Text())
	content := extract.Normalize(card.Find(".c-car-card__preview, .c-post-card__preview").First().Text())
	rec := domain.NewReview(domain.SourceDrive2, kind, brand, model, absolute(pageURL, href), title, content)

	if author := extract.Normalize(card.Find(".c-username__link, .c-post-card__author").First().Text()); author != "" {
		rec.Author = &author
	}
	if info := card.Find(".c-car-card__info, .c-post-card__car-info").First().Text(); strings.TrimSpace(info) != "" {
		applyInfo(&rec, extract.CommonFields(info))
	}
	// the dedicated mileage badge wins over whatever the info line said
	if km, ok := extract.Mileage(card.Find(".c-car-card__param_mileage").First().Text()); ok {
		rec.Mileage = &km
	}
	if n, ok := firstInt(card.Find(".c-post-card__views").First().Text()); ok {
		rec.ViewsCount = &n
	}
	if n, ok := firstInt(card.Find(".c-post-card__likes").First().Text()); ok {
		rec.LikesCount = &n
	}
	if dt, ok := extract.PublishDate(card.Find(".c-post-card__date, .c-car-card__date").First().Text()); ok {
		rec.PublishDate = &dt
	}
	return rec, true
}

func applyInfo(rec *domain.Review, f extract.CarFields) {
	rec.Year = f.Year
	rec.EngineVolume = f.EngineVolume
	rec.Mileage = f.Mileage
	if f.FuelType != "" {
		v := f.FuelType
		rec.FuelType = &v
	}
	if f.Transmission != "" {
		v := f.Transmission
		rec.Transmission = &v
	}
	if f.DriveType != "" {
		v := f.DriveType
		rec.DriveType = &v
	}
}

func nextURL(doc *goquery.Document, pageURL string) string {
	next := doc.Find(".c-pagination__next").First()
	if next.Length() == 0 {
		next = doc.Find("a[rel='next']").First()
	}
	if next.Length() == 0 || strings.Contains(next.AttrOr("class", ""), "disabled") {
		return ""
	}
	href := strings.TrimSpace(next.AttrOr("href", ""))
	if href == "" {
		return ""
	}
	return absolute(pageURL, href)
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
