package response

import (
	"github.com/attendry/attendry-api/internal/domain"
)

// QRValidateResponse resolves a scanned code to its event, along with the
// caller's own record when they already checked in.
type QRValidateResponse struct {
	Event      domain.Event       `json:"event"`
	CheckedIn  bool               `json:"checked_in"`
	Attendance *domain.Attendance `json:"attendance,omitempty"`
}

// SweepResponse reports how many events a manual sweep completed.
type SweepResponse struct {
	Completed int64 `json:"completed"`
}
