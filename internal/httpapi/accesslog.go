package httpapi

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"github.com/gorilla/handlers"
)

// sensitiveParams are query parameters whose values never reach a log.
var sensitiveParams = []string{"refresh_token", "access_token", "password"}

const redacted = "REDACTED"

// redactURL returns u as a string with sensitive query values replaced.
func redactURL(u *url.URL) string {
	if u.RawQuery == "" {
		return u.String()
	}
	q := u.Query()
	changed := false
	for _, k := range sensitiveParams {
		if q.Has(k) {
			q.Set(k, redacted)
			changed = true
		}
	}
	if !changed {
		return u.String()
	}
	c := *u
	c.RawQuery = q.Encode()
	return c.String()
}

// AccessLog wraps h with an Apache common log format access log written to
// w. Sensitive query values are redacted from the logged URI.
func AccessLog(w io.Writer, h http.Handler) http.Handler {
	return handlers.CustomLoggingHandler(w, h, writeAccessLog)
}

func writeAccessLog(w io.Writer, p handlers.LogFormatterParams) {
	host, _, err := net.SplitHostPort(p.Request.RemoteAddr)
	if err != nil {
		host = p.Request.RemoteAddr
	}
	u := p.URL
	fmt.Fprintf(w, "%s - - [%s] \"%s %s %s\" %d %d\n",
		host,
		p.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"),
		p.Request.Method,
		redactURL(&u),
		p.Request.Proto,
		p.StatusCode,
		p.Size,
	)
}
