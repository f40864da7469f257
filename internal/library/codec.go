package library

import (
	"time"

	"github.com/sahayak-labs/sahayak/internal/model"
	"github.com/sahayak-labs/sahayak/internal/remote"
)

// Remote document field names. These match the documents the mobile app
// reads, so renaming any of them is a wire-format change.
const (
	fieldTeacherID     = "teacherId"
	fieldSubject       = "subject"
	fieldTopic         = "topic"
	fieldGradeLevel    = "gradeLevel"
	fieldLanguage      = "language"
	fieldVisualContent = "visualContent"
	fieldExplanation   = "explanation"
	fieldAIGenerated   = "aiGenerated"
	fieldGeneratedAt   = "generatedAt"
	fieldUsageCount    = "usageCount"
	fieldRatingCount   = "ratingCount"
	fieldAverageRating = "averageRating"
	fieldEffectiveness = "effectiveness"
	fieldIsPublic      = "isPublic"
	fieldSharedAt      = "sharedAt"
	fieldTags          = "tags"
)

// createFields builds the document for a new record. The creation
// timestamp is server-assigned via the sentinel; everything else comes
// from the defaulted record.
func createFields(rec *model.VisualAid) remote.Fields {
	return remote.Fields{
		fieldTeacherID:     rec.TeacherID,
		fieldSubject:       rec.Subject,
		fieldTopic:         rec.Topic,
		fieldGradeLevel:    rec.GradeLevel,
		fieldLanguage:      rec.Language,
		fieldVisualContent: rec.VisualContent,
		fieldExplanation:   rec.Explanation,
		fieldAIGenerated:   rec.AIGenerated,
		fieldGeneratedAt:   remote.ServerTimestamp,
		fieldUsageCount:    rec.UsageCount,
		fieldRatingCount:   rec.RatingCount,
		fieldAverageRating: rec.AverageRating,
		fieldEffectiveness: rec.Effectiveness,
		fieldIsPublic:      rec.IsPublic,
		fieldTags:          rec.Tags,
	}
}

// recordFromDoc converts a remote document back into a typed record.
// Field maps never travel further than this boundary. Missing or
// oddly-typed fields decode to zero values rather than failing: the
// remote documents are written by more than one app version.
func recordFromDoc(doc remote.Document) model.VisualAid {
	f := doc.Fields
	rec := model.VisualAid{
		ID:            doc.ID,
		TeacherID:     asString(f[fieldTeacherID]),
		Subject:       asString(f[fieldSubject]),
		Topic:         asString(f[fieldTopic]),
		GradeLevel:    asString(f[fieldGradeLevel]),
		Language:      asString(f[fieldLanguage]),
		VisualContent: asString(f[fieldVisualContent]),
		Explanation:   asString(f[fieldExplanation]),
		AIGenerated:   asBool(f[fieldAIGenerated]),
		GeneratedAt:   asTime(f[fieldGeneratedAt]),
		UsageCount:    asInt64(f[fieldUsageCount]),
		RatingCount:   asInt64(f[fieldRatingCount]),
		AverageRating: asFloat64(f[fieldAverageRating]),
		Effectiveness: asInt64(f[fieldEffectiveness]),
		IsPublic:      asBool(f[fieldIsPublic]),
		Tags:          asStrings(f[fieldTags]),
	}
	if t := asTime(f[fieldSharedAt]); !t.IsZero() {
		rec.SharedAt = &t
	}
	return rec
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func asFloat64(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	default:
		return 0
	}
}

func asTime(v interface{}) time.Time {
	t, _ := v.(time.Time)
	return t
}

func asStrings(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
