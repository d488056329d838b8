package shire

import (
	"regexp"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"The Hobbit: An Adventure!", "the-hobbit-an-adventure"},
		{"  Multiple   Spaces  ", "multiple-spaces"},
		{"Second Breakfast", "second-breakfast"},
		{"---", ""},
		{"", ""},
		{"Bag End, No. 1", "bag-end-no-1"},
		{"Éowyn & Faramir", "owyn-faramir"},
		{"already-a-slug", "already-a-slug"},
		{"UPPER_case", "upper-case"},
		{"İstanbul", "i-stanbul"},
		{"\u212Aelvin", "kelvin"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.input); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSlugifyProperties(t *testing.T) {
	valid := regexp.MustCompile(`^[a-z0-9-]*$`)
	inputs := []string{
		"The Hobbit: An Adventure!",
		"  leading and trailing  ",
		"!!!bang!!!",
		"tabs\tand\nnewlines",
		"Mixed 123 Numbers 456",
		"日本語 title",
		"a--b__c",
	}
	for _, in := range inputs {
		got := Slugify(in)
		if !valid.MatchString(got) {
			t.Errorf("Slugify(%q) = %q contains characters outside [a-z0-9-]", in, got)
		}
		if len(got) > 0 && (got[0] == '-' || got[len(got)-1] == '-') {
			t.Errorf("Slugify(%q) = %q has a leading or trailing hyphen", in, got)
		}
		if again := Slugify(got); again != got {
			t.Errorf("Slugify is not idempotent for %q: %q then %q", in, got, again)
		}
	}
}
