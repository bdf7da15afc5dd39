package domain

import (
	"time"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatReserved  SeatStatus = "RESERVED"
	SeatSold      SeatStatus = "SOLD"
	SeatBlocked   SeatStatus = "BLOCKED"
)

// claimSources lists, per target status, the statuses a seat may be claimed from.
var claimSources = map[SeatStatus][]SeatStatus{
	SeatReserved: {SeatAvailable},
	SeatSold:     {SeatAvailable, SeatReserved},
}

// ClaimableFrom returns the statuses a seat must currently hold to be moved
// into target. It returns nil when target is not a claim status.
func ClaimableFrom(target SeatStatus) []SeatStatus {
	src := claimSources[target]
	if src == nil {
		return nil
	}
	out := make([]SeatStatus, len(src))
	copy(out, src)
	return out
}

func (s SeatStatus) CanTransitionTo(target SeatStatus) bool {
	for _, from := range claimSources[target] {
		if from == s {
			return true
		}
	}
	return false
}

type SeatRecord struct {
	EventID       string
	Showtime      time.Time
	SeatID        string
	Zone          string
	Price         float64
	Status        SeatStatus
	BookingID     *string
	ReservedAt    *time.Time
	ReservedUntil *time.Time
	SoldAt        *time.Time
}

func (s *SeatRecord) IsAvailable() bool {
	return s.Status == SeatAvailable
}

// ClaimRequest describes one conditional seat transition.
type ClaimRequest struct {
	EventID   string
	Showtime  time.Time
	SeatIDs   []string
	BookingID string
	Target    SeatStatus
	// At is the transition instant. For SeatReserved the adapter adds its
	// configured hold window to it.
	At time.Time
}
