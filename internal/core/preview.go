package core

import (
	"context"
	"time"
)

// PreviewSummary counts what an export of the set would do.
type PreviewSummary struct {
	TotalRows   int `json:"totalRows"`
	Convertible int `json:"convertible"`
	Skipped     int `json:"skipped"`
}

// ContactPreview is one record that will produce a card.
type ContactPreview struct {
	LineNumber int    `json:"lineNumber"`
	FullName   string `json:"fullName"`
	FileName   string `json:"fileName"`
}

// SkippedPreview is one record that will be counted as failed.
type SkippedPreview struct {
	LineNumber int               `json:"lineNumber"`
	Values     map[string]string `json:"values"`
}

// PreviewResponse is the result of a read-only look at a CSV.
type PreviewResponse struct {
	Columns          []string          `json:"columns"`
	Mapping          map[string]string `json:"mapping"` // column -> field label, non-Skip only
	MissingRequired  []string          `json:"missingRequired"`
	Summary          PreviewSummary    `json:"summary"`
	ContactSamples   []ContactPreview  `json:"contactSamples"`
	SkippedSamples   []SkippedPreview  `json:"skippedSamples"`
	ProcessingTimeMs int64             `json:"processingTimeMs"`
}

// Sample limits
const (
	maxContactSamples = 10
	maxSkippedSamples = 20
)

// Preview reports how set would convert under assignment. A nil assignment
// uses SuggestMapping. Photos are never fetched and nothing is written.
func (s *Service) Preview(ctx context.Context, set *RecordSet, assignment map[string]FieldTag) (*PreviewResponse, error) {
	start := time.Now()

	if assignment == nil {
		assignment = SuggestMapping(set.Columns)
	}
	mapping, err := NewColumnMapping(set.Columns, assignment)
	if err != nil {
		return nil, err
	}

	resp := &PreviewResponse{
		Columns:        set.Columns,
		Mapping:        mapping.Labels(),
		ContactSamples: []ContactPreview{},
		SkippedSamples: []SkippedPreview{},
		Summary:        PreviewSummary{TotalRows: set.Len()},
	}
	for _, tag := range mapping.MissingRequired() {
		resp.MissingRequired = append(resp.MissingRequired, tag.String())
	}

	b := NewBuilder(mapping)
	for i, rec := range set.Records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		first, last := b.Name(rec)
		if first == "" || last == "" {
			resp.Summary.Skipped++
			if len(resp.SkippedSamples) < maxSkippedSamples {
				resp.SkippedSamples = append(resp.SkippedSamples, SkippedPreview{
					LineNumber: rec.Line(),
					Values:     rec.Values(),
				})
			}
			continue
		}

		resp.Summary.Convertible++
		if len(resp.ContactSamples) < maxContactSamples {
			resp.ContactSamples = append(resp.ContactSamples, ContactPreview{
				LineNumber: rec.Line(),
				FullName:   first + " " + last,
				FileName:   SanitizeFilename(first+" "+last, i+1) + ".vcf",
			})
		}
	}

	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	return resp, nil
}
