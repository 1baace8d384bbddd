// Package extract turns noisy review text into typed car fields. Every
// extractor is a pure best-effort function over an ordered chain of
// pattern+validator rules: no match, an unparsable number, or a value
// outside its plausibility bound all mean "no value", never an error.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var yearRules = []rule[int]{
	{
		re: regexp.MustCompile(`\b(19|20)\d{2}\b`),
		parse: func(m []string) (int, bool) {
			y, err := strconv.Atoi(m[0])
			if err != nil || y < 1980 || y > now().Year() {
				return 0, false
			}
			return y, true
		},
	},
}

// Year picks the first 4-digit 19xx/20xx token inside 1980..current year.
func Year(text string) (int, bool) {
	return firstAccepted(yearRules, text)
}

var mileageRules = []rule[int]{
	{re: regexp.MustCompile(`(?i)(\d+(?:\s*\d{3})*)\s*(?:тыс\.?\s*)?км`), parse: parseMileage},
	{re: regexp.MustCompile(`(?i)(\d+)\s*(?:k|К)\s*км`), parse: parseMileage},
	{re: regexp.MustCompile(`(?i)пробег[:\s]*(\d+(?:\s*\d{3})*)`), parse: parseMileage},
	{re: regexp.MustCompile(`(?i)(\d+(?:\s*\d{3})*)\s*(?:тысяч|тыс)`), parse: parseMileage},
}

func parseMileage(m []string) (int, bool) {
	digits := strings.NewReplacer(" ", "", " ", "").Replace(m[1])
	km, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	// Values like "50" or "120" are shorthand for thousands of km.
	if km < 1000 {
		km *= 1000
	}
	return km, true
}

// Mileage handles regional phrasings in priority order: "50 000 км",
// "120 тыс. км", "50К км", a bare "пробег: 90000", "50 тысяч".
func Mileage(text string) (int, bool) {
	return firstAccepted(mileageRules, text)
}

var volumeRules = []rule[float64]{
	{re: regexp.MustCompile(`(\d+(?:\.\d+)?)\s*л`), parse: parseVolume},
	{re: regexp.MustCompile(`(\d{4})\s*см³`), parse: parseVolume},
	{re: regexp.MustCompile(`(\d+\.\d+)`), parse: parseVolume},
}

func parseVolume(m []string) (float64, bool) {
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if v > 100 { // cc, not liters
		v /= 1000
	}
	if v < 0.8 || v > 8.0 {
		return 0, false
	}
	return v, true
}

// EngineVolume finds a displacement in liters: "2.0 л", "1998 см³", or a
// bare decimal. Candidates outside 0.8–8.0 L are skipped, not returned.
func EngineVolume(text string) (float64, bool) {
	return firstAccepted(volumeRules, text)
}

var fuelRules = []keywordRule{
	{keys: []string{"бензин"}, label: "бензин"},
	{keys: []string{"дизель"}, label: "дизель"},
	{keys: []string{"гибрид"}, label: "гибрид"},
	{keys: []string{"электро"}, label: "электро"},
}

func FuelType(text string) string {
	return firstKeyword(fuelRules, text)
}

var transmissionRules = []keywordRule{
	{keys: []string{"автомат", "акпп"}, label: "автомат"},
	{keys: []string{"механ", "мкпп"}, label: "механика"},
	{keys: []string{"вариатор"}, label: "вариатор"},
}

func Transmission(text string) string {
	return firstKeyword(transmissionRules, text)
}

var driveRules = []keywordRule{
	{keys: []string{"полный", "4wd"}, label: "полный"},
	{keys: []string{"передний", "fwd"}, label: "передний"},
	{keys: []string{"задний", "rwd"}, label: "задний"},
}

func DriveType(text string) string {
	return firstKeyword(driveRules, text)
}

// CarFields bundles everything the free-text heuristics can recover from
// one fragment. Keyword fields use "" for "not found".
type CarFields struct {
	Year         *int
	EngineVolume *float64
	Mileage      *int
	FuelType     string
	Transmission string
	DriveType    string
}

// CommonFields normalizes the fragment once and runs every extractor over
// it. Site parsers call this on a review's description text and overlay
// page-structured values on top.
func CommonFields(text string) CarFields {
	n := Normalize(text)
	var f CarFields
	if y, ok := Year(n); ok {
		f.Year = &y
	}
	if v, ok := EngineVolume(n); ok {
		f.EngineVolume = &v
	}
	if km, ok := Mileage(n); ok {
		f.Mileage = &km
	}
	f.FuelType = FuelType(n)
	f.Transmission = Transmission(n)
	f.DriveType = DriveType(n)
	return f
}
