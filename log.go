package convexauth

import "net/url"

const LogMaskVal = "xxxxxx"

// MaskedQueryKeys are the query parameters whose values never reach a log line.
var MaskedQueryKeys = []string{"ott", "password", "token"}

// Mask replaces every value paired to key in vals with a single LogMaskVal.
func Mask(vals url.Values, key string) {
	if _, ok := vals[key]; !ok {
		return
	}

	vals[key] = []string{LogMaskVal}
}
