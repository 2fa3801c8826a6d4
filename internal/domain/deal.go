package domain

import (
	"time"
)

// Deal stage constants.
const (
	DealStageLead        = "lead"
	DealStageQualified   = "qualified"
	DealStageProposal    = "proposal"
	DealStageNegotiation = "negotiation"
	DealStageClosedWon   = "closed-won"
	DealStageClosedLost  = "closed-lost"
)

// Deal is a read-only snapshot of a CRM deal. Value is in whole currency
// units; Probability is a 0-100 percentage.
type Deal struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CloseDate   time.Time `json:"close_date"`
	Stage       string    `json:"stage"`
	Probability int       `json:"probability"`
	Value       int64     `json:"value"`
}

// IsClosed reports whether the deal has reached a terminal stage.
func (d *Deal) IsClosed() bool {
	return d.Stage == DealStageClosedWon || d.Stage == DealStageClosedLost
}

// ValidDealStages returns the set of valid deal stages.
func ValidDealStages() []string {
	return []string{
		DealStageLead,
		DealStageQualified,
		DealStageProposal,
		DealStageNegotiation,
		DealStageClosedWon,
		DealStageClosedLost,
	}
}

// IsValidDealStage checks whether the given stage string is a valid deal stage.
func IsValidDealStage(stage string) bool {
	for _, s := range ValidDealStages() {
		if s == stage {
			return true
		}
	}
	return false
}
