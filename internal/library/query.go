package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahayak-labs/sahayak/internal/model"
	"github.com/sahayak-labs/sahayak/internal/remote"
)

// Page sizes for the discovery queries. These match what the app's
// screens render.
const (
	subjectPageSize  = 20
	trendingPageSize = 10
)

// ListByTeacher returns a teacher's records, newest first.
//
// When the remote store is unreachable the local cache mirror is
// filtered by teacher instead. The fallback silently omits anything not
// yet mirrored; in particular, queued-but-unsynced records never
// surface as readable results.
func (l *Library) ListByTeacher(ctx context.Context, teacherID string) ([]model.VisualAid, error) {
	docs, err := l.remote.Query(ctx, remote.Query{
		Filters: []remote.Filter{{Field: fieldTeacherID, Value: teacherID}},
		OrderBy: []remote.Order{{Field: fieldGeneratedAt, Desc: true}},
	})
	if err != nil {
		if !remote.IsUnavailable(err) {
			return nil, fmt.Errorf("failed to list records for teacher %s: %w", teacherID, err)
		}

		l.logger.Printf("Remote list failed, serving cached records for teacher %s: %v", teacherID, err)
		entries, lerr := l.box.ListCachedByTeacher(ctx, teacherID)
		if lerr != nil {
			return nil, fmt.Errorf("failed to list records for teacher %s (cache fallback also failed: %v): %w", teacherID, lerr, err)
		}

		records := make([]model.VisualAid, 0, len(entries))
		for _, entry := range entries {
			records = append(records, entry.Record)
		}
		return records, nil
	}

	return recordsFromDocs(docs), nil
}

// ListBySubject returns public records for a subject, most used first,
// capped at one page. There is no offline fallback for this query.
func (l *Library) ListBySubject(ctx context.Context, subject string) ([]model.VisualAid, error) {
	docs, err := l.remote.Query(ctx, remote.Query{
		Filters: []remote.Filter{
			{Field: fieldIsPublic, Value: true},
			{Field: fieldSubject, Value: subject},
		},
		OrderBy: []remote.Order{{Field: fieldUsageCount, Desc: true}},
		Limit:   subjectPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list records for subject %s: %w", subject, err)
	}
	return recordsFromDocs(docs), nil
}

// Search returns public records whose topic, subject, or tags contain
// the query, case-insensitively. The filtering happens client-side over
// all public records; the remote store only does the public-flag cut.
// No offline fallback.
func (l *Library) Search(ctx context.Context, query string) ([]model.VisualAid, error) {
	docs, err := l.remote.Query(ctx, remote.Query{
		Filters: []remote.Filter{{Field: fieldIsPublic, Value: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search records: %w", err)
	}

	needle := strings.ToLower(query)
	var records []model.VisualAid
	for _, doc := range docs {
		rec := recordFromDoc(doc)
		haystack := strings.ToLower(
			rec.Topic + " " + rec.Subject + " " + strings.Join(rec.Tags, " "))
		if strings.Contains(haystack, needle) {
			records = append(records, rec)
		}
	}
	return records, nil
}

// Trending returns the most used public records, ties broken by rating,
// capped at one screen. No offline fallback.
func (l *Library) Trending(ctx context.Context) ([]model.VisualAid, error) {
	docs, err := l.remote.Query(ctx, remote.Query{
		Filters: []remote.Filter{{Field: fieldIsPublic, Value: true}},
		OrderBy: []remote.Order{
			{Field: fieldUsageCount, Desc: true},
			{Field: fieldAverageRating, Desc: true},
		},
		Limit: trendingPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list trending records: %w", err)
	}
	return recordsFromDocs(docs), nil
}

func recordsFromDocs(docs []remote.Document) []model.VisualAid {
	records := make([]model.VisualAid, 0, len(docs))
	for _, doc := range docs {
		records = append(records, recordFromDoc(doc))
	}
	return records
}
