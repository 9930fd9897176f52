package brevo

// EmailAddress represents an email address with an optional display name.
type EmailAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// TransactionalEmail represents a transactional email to be sent.
type TransactionalEmail struct {
	To          []EmailAddress
	Subject     string
	HTMLContent string
	TextContent string
	Sender      *EmailAddress
	Tags        []string
}

// sendEmailRequest is the Brevo smtp/email payload.
type sendEmailRequest struct {
	Sender      *EmailAddress  `json:"sender"`
	To          []EmailAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent,omitempty"`
	TextContent string         `json:"textContent,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
}

// sendEmailResponse is the Brevo smtp/email response.
type sendEmailResponse struct {
	MessageID string `json:"messageId"`
}

// apiError is the Brevo error envelope.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
