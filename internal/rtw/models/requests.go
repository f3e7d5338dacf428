package models

// DateLayout is the accepted date-of-birth format.
const DateLayout = "2006-01-02"

type CreateCheckRequest struct {
	CandidateID         string `json:"candidateId" validate:"required,max=64"`
	NationalityCategory string `json:"nationalityCategory" validate:"required,max=64"`
	Method              string `json:"rightToWorkMethod" validate:"required,oneof=share_code video_call yoti_digital"`
	ShareCode           string `json:"shareCode" validate:"max=32"`
	DateOfBirth         string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
}

type RecordOutcomeRequest struct {
	Verified *bool  `json:"verified" validate:"required"`
	Notes    string `json:"notes" validate:"max=2000"`
}
