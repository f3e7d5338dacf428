package models

// CreateContactRequest is the inbound payload for registering a contact.
type CreateContactRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=candidate client prospect"`
	FirstName   string `json:"firstName" validate:"max=100"`
	LastName    string `json:"lastName" validate:"max=100"`
	CompanyName string `json:"companyName" validate:"max=200"`
	Email       string `json:"email" validate:"omitempty,email,max=254"`
	Phone       string `json:"phone" validate:"max=40"`
}
