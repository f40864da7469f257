package library

import (
	"context"
	"testing"
)

func TestAnalytics(t *testing.T) {
	lib, _, _ := testLibrary(t)
	ctx := context.Background()

	// Three records: two math, one science, with usage 1, 2, 3.
	ids := make([]string, 0, 3)
	for _, subject := range []string{"math", "math", "science"} {
		id, err := lib.Create(ctx, sampleRecord("t1", subject, "topic"))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, id)
	}
	for i, id := range ids {
		for j := 0; j <= i; j++ {
			if err := lib.IncrementUsage(ctx, id); err != nil {
				t.Fatalf("IncrementUsage: %v", err)
			}
		}
	}
	// Another teacher's record must not leak into t1's analytics.
	if _, err := lib.Create(ctx, sampleRecord("t2", "hindi", "topic")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	a, err := lib.Analytics(ctx, "t1")
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if a.TotalVisualAids != 3 {
		t.Errorf("TotalVisualAids = %d, want 3", a.TotalVisualAids)
	}
	if a.TotalUsage != 6 {
		t.Errorf("TotalUsage = %d, want 6", a.TotalUsage)
	}
	if a.SubjectCounts["math"] != 2 || a.SubjectCounts["science"] != 1 {
		t.Errorf("SubjectCounts = %v, want math:2 science:1", a.SubjectCounts)
	}
	if a.MostUsedSubject != "math" {
		t.Errorf("MostUsedSubject = %q, want math", a.MostUsedSubject)
	}
}

func TestAnalyticsAveragesRatings(t *testing.T) {
	lib, _, _ := testLibrary(t)
	ctx := context.Background()

	first, err := lib.Create(ctx, sampleRecord("t1", "math", "first"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := lib.Create(ctx, sampleRecord("t1", "math", "second"))
	if err != nil {
		t.Fatal(err)
	}

	// Per-record averages 4.0 and 2.0; the teacher mean is 3.0.
	if err := lib.Rate(ctx, first, 4); err != nil {
		t.Fatal(err)
	}
	if err := lib.Rate(ctx, second, 2); err != nil {
		t.Fatal(err)
	}

	a, err := lib.Analytics(ctx, "t1")
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if a.AverageRating != 3.0 {
		t.Errorf("AverageRating = %v, want 3.0", a.AverageRating)
	}
}

func TestAnalyticsNoRecords(t *testing.T) {
	lib, _, _ := testLibrary(t)

	a, err := lib.Analytics(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if a.TotalVisualAids != 0 || a.TotalUsage != 0 || a.AverageRating != 0 {
		t.Errorf("empty analytics = %+v, want zeros", a)
	}
	if a.MostUsedSubject != "" {
		t.Errorf("MostUsedSubject = %q, want empty", a.MostUsedSubject)
	}
	if len(a.SubjectCounts) != 0 {
		t.Errorf("SubjectCounts = %v, want empty", a.SubjectCounts)
	}
}
