package middleware

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/fartinmartin/convexauth"
)

// UnknownIPAddress stands in for a client whose address cannot be determined.
const UnknownIPAddress = "0.0.0.0"

// An ipRange is a range of IP addresses.
type ipRange struct {
	start net.IP
	end   net.IP
}

// isInRange checks whether the address is within the range.
func (r ipRange) isInRange(ipAddress net.IP) bool {
	return bytes.Compare(ipAddress, r.start) >= 0 && bytes.Compare(ipAddress, r.end) <= 0
}

// IANA defined IPv4 non-public ranges not covered by net.IP.IsPrivate.
var reservedRanges = []ipRange{
	{start: net.ParseIP("100.64.0.0").To4(), end: net.ParseIP("100.127.255.255").To4()},
	{start: net.ParseIP("192.0.0.0").To4(), end: net.ParseIP("192.0.0.255").To4()},
	{start: net.ParseIP("198.18.0.0").To4(), end: net.ParseIP("198.19.255.255").To4()},
}

// InjectIPAddress grabs the IP address of the *http.Request
// and promotes it to *http.Request.Context under convexauth.IpAddrKey.
func InjectIPAddress() Adapter {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := GetIPAddress(r)
			r = r.Clone(context.WithValue(r.Context(), convexauth.IpAddrKey, ip))
			h.ServeHTTP(w, r)
		})
	}
}

// GetIPAddress parses "X-Forwarded-For" and "X-Real-Ip" headers for the IP address
// of the client, falling back to the address of the connection.
//
// GetIPAddress skips addresses from non-public ranges.
func GetIPAddress(r *http.Request) string {
	for _, h := range []string{"X-Forwarded-For", "X-Real-Ip"} {
		addresses := strings.Split(r.Header.Get(h), ",")
		// march from right to left until we get a public address
		// that will be the address right before our proxy.
		for i := len(addresses) - 1; i >= 0; i-- {
			ip := strings.TrimSpace(addresses[i])
			if isPublic(net.ParseIP(ip)) {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && net.ParseIP(host) != nil {
		return host
	}

	return UnknownIPAddress
}

// ipFromContext retrieves the address InjectIPAddress stored, or looks it up.
func ipFromContext(r *http.Request) string {
	if ip, ok := r.Context().Value(convexauth.IpAddrKey).(string); ok && ip != "" {
		return ip
	}

	return GetIPAddress(r)
}

func isPublic(ip net.IP) bool {
	if ip == nil || !ip.IsGlobalUnicast() || ip.IsPrivate() {
		return false
	}

	if v4 := ip.To4(); v4 != nil {
		for _, r := range reservedRanges {
			if r.isInRange(v4) {
				return false
			}
		}
	}

	return true
}
