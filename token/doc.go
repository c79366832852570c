/*
Package token retrieves access tokens from the auth provider.

A [Fetcher] asks its [Requester] for a token and retries requests that fail
for connectivity reasons, waiting an exponentially growing, jittered interval
between attempts (100ms doubling up to 1s, ±50%).
After 10 retries the last error is returned.
Errors that are not network-class, as classified by [IsNetworkError],
are returned immediately.
*/
package token
