// internal/models/insight.go
package models

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type InsightSource string

const (
	InsightSourceAI       InsightSource = "ai"
	InsightSourceFallback InsightSource = "fallback"
)

// InsightRequest carries the locally computed SEO result the narrative is written for.
type InsightRequest struct {
	URL             string   `json:"url"`
	Score           int      `json:"score"`
	Title           string   `json:"title,omitempty"`
	MetaDescription string   `json:"metaDescription,omitempty"`
	Issues          []string `json:"issues,omitempty"`
}

func (r *InsightRequest) Validate() error {
	r.URL = strings.TrimSpace(r.URL)
	if r.URL == "" {
		return errors.New("url is required")
	}
	parsed, err := url.ParseRequestURI(r.URL)
	if err != nil || parsed.Host == "" {
		return errors.New("url must be absolute")
	}
	if r.Score < 0 || r.Score > 100 {
		return errors.New("score must be between 0 and 100")
	}
	if len(r.Issues) > 50 {
		return errors.New("at most 50 issues are accepted")
	}
	return nil
}

// Insight is a persisted narrative recommendation.
type Insight struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequestID string             `bson:"requestId" json:"requestId"`
	UserID    string             `bson:"userId,omitempty" json:"userId,omitempty"`
	IPAddress string             `bson:"ipAddress" json:"-"`
	URL       string             `bson:"url" json:"url"`
	Score     int                `bson:"score" json:"score"`
	Text      string             `bson:"text" json:"text"`
	Source    InsightSource      `bson:"source" json:"source"`
	Model     string             `bson:"model,omitempty" json:"model,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type InsightResult struct {
	Insight      *Insight      `json:"insight,omitempty"`
	Availability *Availability `json:"availability"`
}

type InsightHistoryResponse struct {
	UserID     string    `json:"userId"`
	Insights   []Insight `json:"insights"`
	Total      int       `json:"total"`
	Pagination Paging    `json:"pagination"`
}

type Paging struct {
	Limit int `json:"limit"`
	Skip  int `json:"skip"`
}
