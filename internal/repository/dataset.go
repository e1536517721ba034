package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"kbgraph/internal/domain"
)

// Dataset is a portable dump of one or more users' records.
type Dataset struct {
	Categories   []domain.Category       `json:"categories"`
	Documents    []domain.Document       `json:"documents"`
	Tags         []domain.Tag            `json:"tags"`
	Associations []DatasetTagAssociation `json:"associations"`
}

// DatasetTagAssociation is a tag link with its owner.
type DatasetTagAssociation struct {
	UserID     string            `json:"user_id"`
	DocumentID domain.DocumentID `json:"document_id"`
	TagID      domain.TagID      `json:"tag_id"`
}

// ReadDataset decodes a JSON dataset.
func ReadDataset(r io.Reader) (*Dataset, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}
	return &ds, nil
}

// ImportStats counts imported records.
type ImportStats struct {
	Categories   int
	Documents    int
	Tags         int
	Associations int
}

// Import writes every record of ds into w: categories, tags, documents, then
// associations.
func Import(ctx context.Context, w Writer, ds *Dataset) (ImportStats, error) {
	var stats ImportStats
	for _, c := range ds.Categories {
		if err := w.PutCategory(ctx, c); err != nil {
			return stats, fmt.Errorf("category %s: %w", c.ID, err)
		}
		stats.Categories++
	}
	for _, t := range ds.Tags {
		if err := w.PutTag(ctx, t); err != nil {
			return stats, fmt.Errorf("tag %s: %w", t.ID, err)
		}
		stats.Tags++
	}
	for _, d := range ds.Documents {
		if err := w.PutDocument(ctx, d); err != nil {
			return stats, fmt.Errorf("document %s: %w", d.ID, err)
		}
		stats.Documents++
	}
	for _, a := range ds.Associations {
		if err := w.AttachTag(ctx, a.UserID, a.DocumentID, a.TagID); err != nil {
			return stats, fmt.Errorf("association %s/%s: %w", a.DocumentID, a.TagID, err)
		}
		stats.Associations++
	}
	return stats, nil
}
