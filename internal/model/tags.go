package model

import "strings"

// subjectKeywords is the fixed tag table for known subjects. Matching is
// case-insensitive on the subject name. This is a closed, extensible
// lookup, not a language-processing routine: add a row to extend it.
var subjectKeywords = map[string][]string{
	"math":    {"mathematics", "calculation", "numbers"},
	"science": {"experiment", "observation", "discovery"},
	"english": {"language", "grammar", "communication"},
	"hindi":   {"bhasha", "vyakaran", "shabd"},
}

// DeriveTags computes the search tags for a record from its subject and
// topic. The result always starts with [subject, topic]; if the subject
// matches the keyword table the matched set is appended. The function is
// pure: identical inputs always yield identical output.
func DeriveTags(subject, topic string) []string {
	tags := []string{subject, topic}
	if extra, ok := subjectKeywords[strings.ToLower(subject)]; ok {
		tags = append(tags, extra...)
	}
	return tags
}
