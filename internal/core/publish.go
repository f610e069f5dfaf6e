package core

import "github.com/dkeye/heartlink/internal/domain"

// PublishResult reports fan-out delivery stats.
type PublishResult struct {
	SentTo  int
	Dropped []domain.UserID
}
