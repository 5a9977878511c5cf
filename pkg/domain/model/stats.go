package model

import (
	"time"

	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
)

// UserActivity is one row of the most-active-users ranking
type UserActivity struct {
	PhoneNumber      string `json:"phone_number"`
	InteractionCount int    `json:"interaction_count"`
}

// UsageStats is the aggregate usage summary of the store
type UsageStats struct {
	TotalUsers         int                       `json:"total_users"`
	TotalInteractions  int                       `json:"total_interactions"`
	TotalMemories      int                       `json:"total_memories"`
	InteractionsByType map[types.MessageType]int `json:"interactions_by_type"`
	LastIngestAt       *time.Time                `json:"last_ingest_time,omitempty"`
	TopUsers           []UserActivity            `json:"top_users"`
}

// AvgInteractionsPerUser returns the mean interaction count per user
func (s *UsageStats) AvgInteractionsPerUser() float64 {
	return ratio(s.TotalInteractions, s.TotalUsers)
}

// AvgMemoriesPerUser returns the mean memory count per user
func (s *UsageStats) AvgMemoriesPerUser() float64 {
	return ratio(s.TotalMemories, s.TotalUsers)
}

// MemoryToInteractionRatio returns how many interactions produced a
// memory record.
func (s *UsageStats) MemoryToInteractionRatio() float64 {
	return ratio(s.TotalMemories, s.TotalInteractions)
}

func ratio(n, d int) float64 {
	if d < 1 {
		d = 1
	}
	return float64(n) / float64(d)
}
