package convexauth

import "time"

// A Session is the provider's report of whether someone is signed in.
// Each report replaces the previous one wholesale.
//
// A nil Data means nobody is signed in, unless IsPending is set,
// in which case the provider has not answered yet.
type Session struct {
	Data      *SessionData
	IsPending bool
}

// Authenticated asserts whether the provider holds a session.
func (s Session) Authenticated() bool { return s.Data != nil }

// SessionData is the payload of better-auth's get-session endpoint.
type SessionData struct {
	Session SessionRecord `json:"session"`
	User    ProviderUser  `json:"user"`
}

// A SessionRecord is better-auth's session row.
type SessionRecord struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
}

// A ProviderUser is better-auth's user row.
type ProviderUser struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	Image         string    `json:"image,omitempty"`
	IsAnonymous   bool      `json:"isAnonymous"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
