package dto

// SignUpRequest payload for new accounts. Accepted as JSON or form-encoded.
type SignUpRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Confirm  string `json:"confirm" form:"confirm"`
}

// SignInRequest payload for login.
type SignInRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// ResendRequest payload for re-issuing a confirmation link.
type ResendRequest struct {
	Email string `json:"email" form:"email"`
}

// AccessLinkRequest payload for admin-issued one-shot sign-in links.
type AccessLinkRequest struct {
	Email  string `json:"email" form:"email"`
	Target string `json:"target" form:"target"`
}
