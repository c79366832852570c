/*
Package authstate reconciles the auth provider's view of a session
with the Convex backend's confirmation of it.

The provider pushes [convexauth.Session] notifications.
The backend pulls tokens through the [convexauth.AccessTokenFunc] a [Reconciler] registers with it
and answers, some time later, whether it accepted them.
A [Reconciler] folds both into a [State]:

	IsLoading       = session pending OR (provider session AND confirmation Unknown)
	IsAuthenticated = provider session AND confirmation Confirmed

Each time the provider session appears, a new registration is made with the backend.
A confirmation delivered for a registration that has since been superseded is dropped.
Losing the provider session turns the confirmation to Rejected straight away.
*/
package authstate
