package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"

	"github.com/fartinmartin/convexauth"
	"github.com/fartinmartin/convexauth/logger"
)

// A LogRequestRecord describes a request once it has been served.
type LogRequestRecord struct {
	BodySize       int64  `json:"bodySize"`
	Duration       string `json:"duration"`
	Host           string `json:"host"`
	ID             string `json:"id,omitempty"`
	IPAddr         string `json:"ipAddr,omitempty"`
	Method         string `json:"method"`
	Path           string `json:"path"`
	Protocol       string `json:"protocol"`
	Referrer       string `json:"referrer,omitempty"`
	ReqContentType string `json:"reqContentType,omitempty"`
	Scheme         string `json:"scheme,omitempty"`
	Status         int    `json:"status"`
	URI            string `json:"uri"`
	UserAgent      string `json:"userAgent,omitempty"`
}

// LogRequest logs the request's method, requested URL, originating IP address
// and the response's status once served using the enclosed implementation of logger.Logger.
//
// LogRequest scrubs the values of the query parameters in convexauth.MaskedQueryKeys.
//
// if logger.Logger is nil, NoopAdapter returns and this middleware does nothing.
func LogRequest(ls logger.Logger) Adapter {
	if ls == nil {
		return NoopAdapter
	}

	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(h, w, r)

			rec := newLogRequestRecord(r)
			rec.BodySize = m.Written
			rec.Duration = m.Duration.Round(time.Microsecond).String()
			rec.Status = m.Code

			msg := fmt.Sprintf("%s %s %d", rec.Method, rec.URI, rec.Status)
			if rec.IPAddr != "" {
				msg = rec.IPAddr + " " + msg
			}

			ls.Info(msg, &logger.LogContext{Data: map[string]any{"request": rec}})
		})
	}
}

func newLogRequestRecord(r *http.Request) LogRequestRecord {
	uri := r.URL.Path
	q := r.URL.Query()
	for _, key := range convexauth.MaskedQueryKeys {
		convexauth.Mask(q, key)
	}

	if query := q.Encode(); query != "" {
		uri += "?" + query
	}

	rec := LogRequestRecord{
		Host:           r.Host,
		Method:         r.Method,
		Path:           r.URL.Path,
		Protocol:       r.Proto,
		Referrer:       r.Referer(),
		ReqContentType: r.Header.Get("Content-Type"),
		Scheme:         r.URL.Scheme,
		URI:            uri,
		UserAgent:      r.UserAgent(),
	}

	if id, ok := r.Context().Value(convexauth.RequestIDKey).(string); ok {
		rec.ID = id
	}

	if ip, ok := r.Context().Value(convexauth.IpAddrKey).(string); ok {
		rec.IPAddr = ip
	}

	return rec
}
