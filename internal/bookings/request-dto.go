package bookings

// InitiateRequest is the payload that starts a reservation. Field rules
// mirror the booking form: every detail is collected before initiation.
type InitiateRequest struct {
	Name          string `json:"name" binding:"required,min=2,max=120"`
	Email         string `json:"email" binding:"required,email"`
	Phone         string `json:"phone" binding:"required,min=10,max=30"`
	Gender        string `json:"gender" binding:"required,oneof=male female other"`
	AgeRange      string `json:"ageRange" binding:"required,oneof=18-25 26-35 36-45 46-55 55+"`
	AboutYourself string `json:"aboutYourself" binding:"max=500"`
	Date          string `json:"date" binding:"required"`
	Seats         []int  `json:"seats" binding:"required,min=1,dive,min=1"`
	TermsAccepted bool   `json:"termsAccepted" binding:"required"`
}

// VerifyRequest confirms a pending reservation with the mailed passcode.
type VerifyRequest struct {
	Email            string `json:"email" binding:"required,email"`
	OTP              string `json:"otp" binding:"required"`
	TempID           string `json:"tempId" binding:"required"`
	ReservationToken string `json:"reservationToken" binding:"required"`
}

// ResendRequest asks for a fresh passcode for a pending reservation. The
// email alone is enough; tempId narrows the lookup when the client has it.
type ResendRequest struct {
	TempID string `json:"tempId" binding:"omitempty"`
	Email  string `json:"email" binding:"required,email"`
}
