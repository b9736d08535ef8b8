package models

// Session is the authentication state of the single local user.
type Session struct {
	Token           string `json:"token,omitempty"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}
