package model

import (
	"reflect"
	"testing"
)

func TestDeriveTagsKnownSubject(t *testing.T) {
	tags := DeriveTags("math", "fractions")
	want := []string{"math", "fractions", "mathematics", "calculation", "numbers"}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("DeriveTags(math, fractions) = %v, want %v", tags, want)
	}
}

func TestDeriveTagsCaseInsensitiveSubject(t *testing.T) {
	lower := DeriveTags("science", "photosynthesis")
	upper := DeriveTags("Science", "photosynthesis")
	// Subject casing changes only the leading tag, never the keyword set.
	if !reflect.DeepEqual(lower[2:], upper[2:]) {
		t.Errorf("keyword tags differ by case: %v vs %v", lower[2:], upper[2:])
	}
	if upper[0] != "Science" {
		t.Errorf("leading tag = %q, want original subject casing", upper[0])
	}
}

func TestDeriveTagsUnknownSubject(t *testing.T) {
	tags := DeriveTags("geography", "rivers")
	want := []string{"geography", "rivers"}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("DeriveTags(geography, rivers) = %v, want exactly %v", tags, want)
	}
}

func TestDeriveTagsDeterministic(t *testing.T) {
	first := DeriveTags("hindi", "vyakaran basics")
	for i := 0; i < 5; i++ {
		again := DeriveTags("hindi", "vyakaran basics")
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("call %d returned %v, first call returned %v", i, again, first)
		}
	}
}

func TestDeriveTagsAllKnownSubjects(t *testing.T) {
	for subject, keywords := range subjectKeywords {
		tags := DeriveTags(subject, "topic")
		if len(tags) != 2+len(keywords) {
			t.Errorf("DeriveTags(%q): got %d tags, want %d", subject, len(tags), 2+len(keywords))
		}
	}
}
