package convexauth

type Key string

const (
	// ConvexKey stashes the per-request Convex client.
	ConvexKey Key = "ConvexKey"

	// CurrentUserKey stashes the User resolved for a request.
	CurrentUserKey Key = "CurrentUserKey"

	// IpAddrKey stashes the IP address of an HTTP request being handled.
	IpAddrKey Key = "IpAddrKey"

	// RequestIDKey stashes a unique UUID for each HTTP request.
	RequestIDKey Key = "RequestIDKey"

	// TokenKey stashes the JWT a request was authenticated with.
	TokenKey Key = "TokenKey"
)

// String formats the stringified key with additional contextual information
func (k Key) String() string {
	return "convexauth context key: " + string(k)
}
