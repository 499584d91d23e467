// internal/models/usage.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScopeType names the counting dimension a usage row belongs to.
type ScopeType string

const (
	ScopeUser ScopeType = "user"
	ScopeIP   ScopeType = "ip"
)

// UsageRecord is the accumulated usage of one identity scope on one UTC day
// for one service. At most one row exists per (scopeKey, scopeType, service,
// windowStart); requestCount only grows.
type UsageRecord struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ScopeType     ScopeType          `bson:"scopeType" json:"scopeType"`
	ScopeKey      string             `bson:"scopeKey" json:"scopeKey"`
	Service       string             `bson:"service" json:"service"`
	RequestCount  int                `bson:"requestCount" json:"requestCount"`
	WindowStart   time.Time          `bson:"windowStart" json:"windowStart"`
	LastRequestAt time.Time          `bson:"lastRequestAt" json:"lastRequestAt"`
	ExpiresAt     time.Time          `bson:"expiresAt" json:"expiresAt"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

// Identity carries both scopes of a caller. UserID is empty for anonymous callers.
type Identity struct {
	UserID    string `json:"userId,omitempty"`
	IPAddress string `json:"ipAddress"`
}

// EffectiveUsage is the most restrictive view over the user and IP rows.
type EffectiveUsage struct {
	RequestCount int       `json:"requestCount"`
	Scope        ScopeType `json:"scope,omitempty"`
	UserCount    int       `json:"userCount"`
	IPCount      int       `json:"ipCount"`
}

// DailySummary is the per-day aggregate over every row of a service.
type DailySummary struct {
	TotalRequests int64 `bson:"totalRequests" json:"totalRequests"`
	UniqueUsers   int64 `bson:"uniqueUsers" json:"uniqueUsers"`
	UniqueIPs     int64 `bson:"uniqueIPs" json:"uniqueIPs"`
}

type UsageStats struct {
	Daily  DailyUsage  `json:"daily"`
	Limits UsageLimits `json:"limits"`
}

type DailyUsage struct {
	Date          string `json:"date"`
	TotalRequests int64  `json:"totalRequests"`
	UniqueUsers   int64  `json:"uniqueUsers"`
	UniqueIPs     int64  `json:"uniqueIPs"`
}

type UsageLimits struct {
	DailyLimit       int   `json:"dailyLimit"`
	GlobalDailyLimit int   `json:"globalDailyLimit"`
	GlobalRemaining  int64 `json:"globalRemaining"`
}

// RateLimitStatus puts both rows side by side for support diagnostics.
type RateLimitStatus struct {
	Service     string         `json:"service"`
	Identity    Identity       `json:"identity"`
	UserRecord  *UsageRecord   `json:"userRecord"`
	IPRecord    *UsageRecord   `json:"ipRecord"`
	Effective   EffectiveUsage `json:"effective"`
	Remaining   int            `json:"remainingRequests"`
	GlobalUsage int64          `json:"globalUsage"`
	Limits      UsageLimits    `json:"limits"`
	Now         time.Time      `json:"now"`
	WindowStart time.Time      `json:"windowStart"`
	NextReset   time.Time      `json:"nextReset"`
}

type ResetResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}
