/*
Package cookie reads and writes the cookies of a single HTTP request.

A [Store] layers the cookies set while handling a request over the ones the request arrived with,
so a cookie set by one middleware is visible to the next.
Writes after the response has started streaming cannot reach the client;
they are dropped and logged at debug level.

	cw := cookie.Wrap(w)
	store := cookie.NewStore(cw, r)
	cookie.Forward(store, cookie.ParseSetCookie(upstream.Header))
	next.ServeHTTP(cw, r)
*/
package cookie
