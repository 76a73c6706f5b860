package request

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

type CreateEventRequest struct {
	Name                  string    `json:"name"`
	Description           string    `json:"description,omitempty"`
	VenueName             string    `json:"venue_name,omitempty"`
	Lat                   float64   `json:"lat"`
	Lng                   float64   `json:"lng"`
	StartTime             time.Time `json:"start_time"`
	EndTime               time.Time `json:"end_time"`
	CheckInBufferMinutes  int       `json:"check_in_buffer_minutes"`
	CheckOutBufferMinutes int       `json:"check_out_buffer_minutes"`
}

func (req *CreateEventRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&req.Description, validation.Length(0, 500)),
		validation.Field(&req.VenueName, validation.Length(0, 100)),
		validation.Field(&req.Lat, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&req.Lng, validation.Min(-180.0), validation.Max(180.0)),
		validation.Field(&req.StartTime, validation.Required),
		validation.Field(&req.EndTime, validation.Required),
		validation.Field(&req.CheckInBufferMinutes, validation.Min(0), validation.Max(24*60)),
		validation.Field(&req.CheckOutBufferMinutes, validation.Min(0), validation.Max(24*60)),
	)
}

type QRValidateRequest struct {
	Code string `json:"code"`
}

func (req *QRValidateRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Code, validation.Required, validation.Length(1, 128)),
	)
}
