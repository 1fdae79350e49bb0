package middleware

import (
	"net"
	"net/http"

	"github.com/MrEthical07/authflow"
)

// ClientInfo extracts the caller's address and user agent. The address is
// the TCP peer; proxy headers are not trusted.
func ClientInfo(r *http.Request) authflow.ClientInfo {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return authflow.ClientInfo{IP: host, UserAgent: r.UserAgent()}
}
