package store

import (
	"go.mongodb.org/mongo-driver/bson"

	"blogapi/models"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ListParams are the listing inputs, all optional. Normalize fills defaults.
type ListParams struct {
	Page      int
	Limit     int
	Search    string
	Category  string
	Tag       string
	Status    string
	SortBy    string
	SortOrder string
}

// Sortable fields. Anything else falls back to createdAt rather than letting
// clients sort on arbitrary document fields.
var sortFields = map[string]string{
	"createdAt":   "createdAt",
	"updatedAt":   "updatedAt",
	"publishedAt": "publishedAt",
	"title":       "title",
	"views":       "meta.views",
}

func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if !models.ValidStatus(p.Status) {
		p.Status = models.StatusPublished
	}
	if _, ok := sortFields[p.SortBy]; !ok {
		p.SortBy = "createdAt"
	}
	if p.SortOrder != "asc" {
		p.SortOrder = "desc"
	}
	return p
}

func (p ListParams) Skip() int64 {
	return int64(p.Page-1) * int64(p.Limit)
}

// Filter builds the mongo filter document: status always, the rest only when
// present, all ANDed together. Category and tag filters are array membership
// matches.
func (p ListParams) Filter() bson.M {
	filter := bson.M{"status": p.Status}
	if p.Search != "" {
		filter["$text"] = bson.M{"$search": p.Search}
	}
	if p.Category != "" {
		filter["categories"] = p.Category
	}
	if p.Tag != "" {
		filter["tags"] = p.Tag
	}
	return filter
}

// Sort builds the single-field sort document. Ties are left to store order.
func (p ListParams) Sort() bson.D {
	dir := -1
	if p.SortOrder == "asc" {
		dir = 1
	}
	return bson.D{{Key: sortFields[p.SortBy], Value: dir}}
}

// Pages computes the page count for a total match count.
func (p ListParams) Pages(total int64) int64 {
	if total == 0 {
		return 0
	}
	return (total + int64(p.Limit) - 1) / int64(p.Limit)
}
