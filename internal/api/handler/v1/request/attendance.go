package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

// CheckInRequest carries the raw device coordinate; the distance to the venue
// is always derived server-side, never accepted from the client.
type CheckInRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (req *CheckInRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Lat, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&req.Lng, validation.Min(-180.0), validation.Max(180.0)),
	)
}

type CheckOutRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (req *CheckOutRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Lat, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&req.Lng, validation.Min(-180.0), validation.Max(180.0)),
	)
}

type ApproveRequest struct {
	ResolutionNotes string `json:"resolution_notes,omitempty"`
}

func (req *ApproveRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.ResolutionNotes, validation.Length(0, 500)),
	)
}

type RejectRequest struct {
	DisputeNote     string `json:"dispute_note"`
	ResolutionNotes string `json:"resolution_notes,omitempty"`
}

func (req *RejectRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.DisputeNote, validation.Required, validation.Length(1, 500)),
		validation.Field(&req.ResolutionNotes, validation.Length(0, 500)),
	)
}
