package domain

import (
	"strconv"
	"time"
)

type StallSize string

const (
	StallSmall  StallSize = "small"
	StallMedium StallSize = "medium"
	StallLarge  StallSize = "large"
)

func ParseStallSize(s string) (StallSize, bool) {
	switch StallSize(s) {
	case StallSmall, StallMedium, StallLarge:
		return StallSize(s), true
	default:
		return "", false
	}
}

// Stall is a bookable booth. Reserved is true iff ReservedBy is non-empty.
type Stall struct {
	ID            string    `json:"id"`
	Size          StallSize `json:"size"`
	Reserved      bool      `json:"reserved"`
	ReservedBy    string    `json:"reservedBy,omitempty"`
	PublisherName string    `json:"publisherName,omitempty"`
	Version       int64     `json:"version"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Assign marks the stall reserved for requester.
func (s *Stall) Assign(requester, publisherName string, at time.Time) {
	s.Reserved = true
	s.ReservedBy = requester
	s.PublisherName = publisherName
	s.Version++
	s.UpdatedAt = at
}

// Free clears the reservation fields.
func (s *Stall) Free(at time.Time) {
	s.Reserved = false
	s.ReservedBy = ""
	s.PublisherName = ""
	s.Version++
	s.UpdatedAt = at
}

// AvailableTo reports whether requester may take the stall: it is free or
// already held by the same requester.
func (s *Stall) AvailableTo(requester string) bool {
	return !s.Reserved || s.ReservedBy == requester
}

// DefaultStalls is the fixed hall layout seeded at startup.
func DefaultStalls() []Stall {
	layout := []struct {
		row   string
		count int
		size  StallSize
	}{
		{"A", 6, StallSmall},
		{"B", 6, StallMedium},
		{"C", 4, StallLarge},
	}

	var stalls []Stall
	for _, l := range layout {
		for i := 1; i <= l.count; i++ {
			stalls = append(stalls, Stall{
				ID:   l.row + strconv.Itoa(i),
				Size: l.size,
			})
		}
	}
	return stalls
}
