package ddb

import (
	"fmt"
	"strings"
	"time"

	"kbgraph/internal/domain"
)

// Single-table layout. Every record of a user lives under one partition so
// that a snapshot is a handful of Query calls; GSI1 resolves documents and
// categories by id alone.
const (
	skDocument = "DOC#"
	skCategory = "CAT#"
	skTag      = "TAG#"
	skDocTag   = "DOCTAG#"
	gsiSortKey = "METADATA"
)

func userPK(userID string) string { return "USER#" + userID }

func documentSK(id domain.DocumentID) string { return skDocument + string(id) }
func categorySK(id domain.CategoryID) string { return skCategory + string(id) }
func tagSK(id domain.TagID) string           { return skTag + string(id) }

func docTagSK(doc domain.DocumentID, tag domain.TagID) string {
	return skDocTag + string(doc) + "#" + string(tag)
}

// parseDocTagSK splits DOCTAG#<doc>#<tag>.
func parseDocTagSK(sk string) (domain.DocumentID, domain.TagID, error) {
	rest, ok := strings.CutPrefix(sk, skDocTag)
	if !ok {
		return "", "", fmt.Errorf("not a tag association key: %q", sk)
	}
	doc, tag, ok := strings.Cut(rest, "#")
	if !ok || doc == "" || tag == "" {
		return "", "", fmt.Errorf("malformed tag association key: %q", sk)
	}
	return domain.DocumentID(doc), domain.TagID(tag), nil
}

type ddbDocument struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	DocumentID string `dynamodbav:"DocumentID"`
	UserID     string `dynamodbav:"UserID"`
	Title      string `dynamodbav:"Title"`
	Content    string `dynamodbav:"Content,omitempty"`
	CategoryID string `dynamodbav:"CategoryID,omitempty"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
	DeletedAt  string `dynamodbav:"DeletedAt,omitempty"`
}

type ddbCategory struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	GSI1PK      string `dynamodbav:"GSI1PK"`
	GSI1SK      string `dynamodbav:"GSI1SK"`
	CategoryID  string `dynamodbav:"CategoryID"`
	UserID      string `dynamodbav:"UserID"`
	Name        string `dynamodbav:"Name"`
	Description string `dynamodbav:"Description,omitempty"`
	ParentID    string `dynamodbav:"ParentID,omitempty"`
	CreatedAt   string `dynamodbav:"CreatedAt"`
	UpdatedAt   string `dynamodbav:"UpdatedAt"`
}

type ddbTag struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	TagID     string `dynamodbav:"TagID"`
	UserID    string `dynamodbav:"UserID"`
	Name      string `dynamodbav:"Name"`
	Color     string `dynamodbav:"Color,omitempty"`
	CreatedAt string `dynamodbav:"CreatedAt"`
}

type ddbDocTag struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func toDocumentItem(d domain.Document) ddbDocument {
	item := ddbDocument{
		PK:         userPK(d.UserID),
		SK:         documentSK(d.ID),
		GSI1PK:     documentSK(d.ID),
		GSI1SK:     gsiSortKey,
		DocumentID: string(d.ID),
		UserID:     d.UserID,
		Title:      d.Title,
		Content:    d.Content,
		CreatedAt:  formatTime(d.CreatedAt),
		UpdatedAt:  formatTime(d.UpdatedAt),
	}
	if d.CategoryID != nil {
		item.CategoryID = string(*d.CategoryID)
	}
	if d.DeletedAt != nil {
		item.DeletedAt = formatTime(*d.DeletedAt)
	}
	return item
}

func (i ddbDocument) toDomain() domain.Document {
	d := domain.Document{
		ID:        domain.DocumentID(i.DocumentID),
		UserID:    i.UserID,
		Title:     i.Title,
		Content:   i.Content,
		CreatedAt: parseTime(i.CreatedAt),
		UpdatedAt: parseTime(i.UpdatedAt),
	}
	if i.CategoryID != "" {
		d.CategoryID = domain.CategoryRef(domain.CategoryID(i.CategoryID))
	}
	if i.DeletedAt != "" {
		t := parseTime(i.DeletedAt)
		d.DeletedAt = &t
	}
	return d
}

func toCategoryItem(c domain.Category) ddbCategory {
	item := ddbCategory{
		PK:          userPK(c.UserID),
		SK:          categorySK(c.ID),
		GSI1PK:      categorySK(c.ID),
		GSI1SK:      gsiSortKey,
		CategoryID:  string(c.ID),
		UserID:      c.UserID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   formatTime(c.CreatedAt),
		UpdatedAt:   formatTime(c.UpdatedAt),
	}
	if c.ParentID != nil {
		item.ParentID = string(*c.ParentID)
	}
	return item
}

func (i ddbCategory) toDomain() domain.Category {
	c := domain.Category{
		ID:          domain.CategoryID(i.CategoryID),
		UserID:      i.UserID,
		Name:        i.Name,
		Description: i.Description,
		CreatedAt:   parseTime(i.CreatedAt),
		UpdatedAt:   parseTime(i.UpdatedAt),
	}
	if i.ParentID != "" {
		c.ParentID = domain.CategoryRef(domain.CategoryID(i.ParentID))
	}
	return c
}

func toTagItem(t domain.Tag) ddbTag {
	return ddbTag{
		PK:        userPK(t.UserID),
		SK:        tagSK(t.ID),
		TagID:     string(t.ID),
		UserID:    t.UserID,
		Name:      t.Name,
		Color:     t.Color,
		CreatedAt: formatTime(t.CreatedAt),
	}
}

func (i ddbTag) toDomain() domain.Tag {
	return domain.Tag{
		ID:        domain.TagID(i.TagID),
		UserID:    i.UserID,
		Name:      i.Name,
		Color:     i.Color,
		CreatedAt: parseTime(i.CreatedAt),
	}
}
