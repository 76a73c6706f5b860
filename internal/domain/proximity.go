package domain

// VerificationStatus is the audit state of an attendance record.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "Pending"
	VerificationApproved VerificationStatus = "Approved"
	VerificationRejected VerificationStatus = "Rejected"
)

// Proximity tiers in meters. Policy constants, not configuration.
const (
	ApprovedRadius = 20.0
	PendingRadius  = 80.0
	GeofenceRadius = 100.0
)

// ClassifySingle maps a single distance-to-venue to a trust tier.
func ClassifySingle(distance float64) VerificationStatus {
	switch {
	case distance <= ApprovedRadius:
		return VerificationApproved
	case distance <= PendingRadius:
		return VerificationPending
	default:
		return VerificationRejected
	}
}

// ClassifyCombined classifies a record carrying both check-in and check-out
// distances. Approved requires both inside the approved radius. Rejection
// triggers at the pending radius inclusive (>= 80), unlike the single-sided
// rule where exactly 80 is still Pending.
func ClassifyCombined(distanceIn, distanceOut float64) VerificationStatus {
	if distanceIn <= ApprovedRadius && distanceOut <= ApprovedRadius {
		return VerificationApproved
	}
	if distanceIn >= PendingRadius || distanceOut >= PendingRadius {
		return VerificationRejected
	}

	return VerificationPending
}
