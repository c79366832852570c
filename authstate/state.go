package authstate

// A Confirmation is the backend's answer to the token it was given.
type Confirmation int

const (
	// Unknown means the backend has not answered yet.
	Unknown Confirmation = iota

	// Confirmed means the backend validated the token.
	Confirmed

	// Rejected means the backend refused the token or the session ended.
	Rejected
)

func (c Confirmation) String() string {
	switch c {
	case Confirmed:
		return "confirmed"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// A State is a snapshot of the reconciled authentication state.
type State struct {
	IsAuthProviderAuthenticated bool
	IsConvexAuthenticated       Confirmation
	IsLoading                   bool
	IsAuthenticated             bool
}

// derive computes a State from the session fields and the backend's confirmation.
func derive(pending, providerAuthed bool, c Confirmation) State {
	return State{
		IsAuthProviderAuthenticated: providerAuthed,
		IsConvexAuthenticated:       c,
		IsLoading:                   pending || (providerAuthed && c == Unknown),
		IsAuthenticated:             providerAuthed && c == Confirmed,
	}
}
