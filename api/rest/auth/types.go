package auth

// identity of the authenticated caller
type IdentityResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// MessageResponse for simple success messages
type MessageResponse struct {
	Message string `json:"message"`
}
