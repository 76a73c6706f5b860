package domain

import "time"

// Attendance is one subject's participation in one event. A record is
// created at check-in, so check-in evidence is always present; check-out
// evidence and verifier fields are filled in later, if at all.
type Attendance struct {
	ID      uint `json:"id"`
	EventID uint `json:"event_id"`
	UserID  uint `json:"user_id"`

	CheckInAt       time.Time  `json:"check_in_at"`
	CheckInCoord    Coordinate `json:"check_in_coordinate"`
	CheckInDistance float64    `json:"check_in_distance"`

	CheckOutAt       *time.Time  `json:"check_out_at,omitempty"`
	CheckOutCoord    *Coordinate `json:"check_out_coordinate,omitempty"`
	CheckOutDistance *float64    `json:"check_out_distance,omitempty"`

	Status VerificationStatus `json:"status"`

	DisputeNote     string     `json:"dispute_note,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
	VerifiedBy      *uint      `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HumanVerified reports whether a moderator or admin has already acted on
// the record. Automatic reclassification must never run once this is true.
func (a Attendance) HumanVerified() bool {
	return a.VerifiedBy != nil
}

// AttendanceSummary is the per-event status breakdown shown on dashboards.
type AttendanceSummary struct {
	EventID  uint  `json:"event_id"`
	Total    int64 `json:"total"`
	Approved int64 `json:"approved"`
	Pending  int64 `json:"pending"`
	Rejected int64 `json:"rejected"`
}
