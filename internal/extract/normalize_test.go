package extract

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"plain", "Отличная машина", "Отличная машина"},
		{"tags become spaces", "<p>Плюсы</p><b>Минусы</b>", "Плюсы Минусы"},
		{"nbsp collapses", "50 000 км", "50 000 км"},
		{"whitespace runs", "  первый\n\t  второй  ", "первый второй"},
		{"tag does not glue words", "до<br/>после", "до после"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Normalize(c.in); got != c.want {
				t.Fatalf("Normalize(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}
