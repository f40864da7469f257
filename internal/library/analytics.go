package library

import (
	"context"
	"fmt"

	"github.com/sahayak-labs/sahayak/internal/remote"
)

// TeacherAnalytics summarizes a teacher's visual-aid usage.
type TeacherAnalytics struct {
	TotalVisualAids int            `json:"total_visual_aids"`
	TotalUsage      int64          `json:"total_usage"`
	AverageRating   float64        `json:"average_rating"`
	SubjectCounts   map[string]int `json:"subject_counts"`
	MostUsedSubject string         `json:"most_used_subject"`
}

// Analytics aggregates over all of a teacher's records: total count,
// summed usage, mean of the per-record average ratings (0 if there are
// no records), a subject frequency table, and the most frequent subject
// with ties broken by encounter order. Remote only; there is no cache
// fallback for analytics.
func (l *Library) Analytics(ctx context.Context, teacherID string) (*TeacherAnalytics, error) {
	docs, err := l.remote.Query(ctx, remote.Query{
		Filters: []remote.Filter{{Field: fieldTeacherID, Value: teacherID}},
		OrderBy: []remote.Order{{Field: fieldGeneratedAt, Desc: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load analytics for teacher %s: %w", teacherID, err)
	}

	result := &TeacherAnalytics{
		SubjectCounts: make(map[string]int),
	}

	var ratingSum float64
	var bestCount int
	for _, doc := range docs {
		rec := recordFromDoc(doc)

		result.TotalVisualAids++
		result.TotalUsage += rec.UsageCount
		ratingSum += rec.AverageRating

		result.SubjectCounts[rec.Subject]++
		// Strictly-greater keeps the first subject to reach a given
		// count, which is the documented tie-break.
		if result.SubjectCounts[rec.Subject] > bestCount {
			bestCount = result.SubjectCounts[rec.Subject]
			result.MostUsedSubject = rec.Subject
		}
	}

	if result.TotalVisualAids > 0 {
		result.AverageRating = ratingSum / float64(result.TotalVisualAids)
	}

	return result, nil
}
