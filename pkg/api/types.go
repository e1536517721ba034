// Package api defines the JSON contracts of the HTTP API. It is decoupled
// from the domain model; the analytics service maps into these types.
package api

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// GraphResponse is a node/edge list ready for a force-directed renderer.
type GraphResponse struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

type GraphNode struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Kind  string  `json:"kind"`
	Size  float64 `json:"size"`
	Color string  `json:"color"`
}

// GraphEdge carries a weight only for similarity edges.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
	Weight int    `json:"weight,omitempty"`
}

type TagCloudEntry struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Color    string  `json:"color,omitempty"`
	Weight   int     `json:"weight"`
	FontSize float64 `json:"fontSize"`
}

type CentralNode struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	ConnectionCount int    `json:"connectionCount"`
}

type DensityResponse struct {
	Value int    `json:"value"`
	Level string `json:"level"`
}

// ClusterCount is one named cluster.
type ClusterCount struct {
	Name  string
	Count int
}

// ClusterCounts marshals as a JSON object whose keys keep slice order.
type ClusterCounts []ClusterCount

func (c ClusterCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(entry.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type ClustersResponse struct {
	Clusters      ClusterCounts `json:"clusters"`
	TotalClusters int           `json:"totalClusters"`
}

type CategorySummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type GapsResponse struct {
	TotalCategories     int               `json:"totalCategories"`
	CoveredCategories   int               `json:"coveredCategories"`
	CoverageRate        float64           `json:"coverageRate"`
	UncoveredCategories []CategorySummary `json:"uncoveredCategories"`
	SuggestedTags       []string          `json:"suggestedTags"`
}

type PathNode struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Step      int    `json:"step"`
	Size      int    `json:"size"`
	CreatedAt string `json:"createdAt"`
	Latest    bool   `json:"latest"`
	Color     string `json:"color"`
}

type PathLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type LearningPathResponse struct {
	Goal       string     `json:"goal,omitempty"`
	Nodes      []PathNode `json:"nodes"`
	Links      []PathLink `json:"links"`
	TotalSteps int        `json:"totalSteps"`
	StartDate  string     `json:"startDate"`
	LatestDate string     `json:"latestDate"`
}

type SimilarDocument struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	SimilarityScore int    `json:"similarityScore"`
}

// CategoryNode is one node of the category forest.
type CategoryNode struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	ParentID    *string        `json:"parentId"`
	Children    []CategoryNode `json:"children"`
}

type TrendPoint struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type TrendsResponse struct {
	Months int          `json:"months"`
	Points []TrendPoint `json:"points"`
}

type ActivityDocument struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type RecentActivityResponse struct {
	Days      int                `json:"days"`
	Documents []ActivityDocument `json:"documents"`
	Created   int                `json:"created"`
	Updated   int                `json:"updated"`
}

type ActivityPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type ActivityResponse struct {
	Days   int             `json:"days"`
	Points []ActivityPoint `json:"points"`
}

// MoveCategoryRequest is the body of PUT /categories/{categoryId}/parent.
// A null parentId moves the category to the root level.
type MoveCategoryRequest struct {
	ParentID *string `json:"parentId" validate:"omitempty,min=1"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Backend     string `json:"backend"`
	Time        string `json:"time"`
}
