package convexauth

// A User is the current user as the Convex backend reports it:
// the application's users document merged with the better-auth user it belongs to.
//
// An anonymous User is created the first time a visitor without a session is seen.
type User struct {
	ID            string  `json:"_id"`
	CreationTime  float64 `json:"_creationTime,omitempty"`
	UserID        string  `json:"userId"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	EmailVerified bool    `json:"emailVerified"`
	Image         string  `json:"image,omitempty"`
	IsAnonymous   bool    `json:"isAnonymous"`
	CreatedAt     float64 `json:"createdAt,omitempty"`
	UpdatedAt     float64 `json:"updatedAt,omitempty"`
}

// GetID retrieves the users document ID.
func (u User) GetID() string { return u.ID }

// GetEmail retrieves the email address of the User,
// falling back to the better-auth user ID for anonymous users.
func (u User) GetEmail() string {
	if u.Email != "" {
		return u.Email
	}

	return u.UserID
}
