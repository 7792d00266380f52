package http

import (
	"net"
	"net/http"
	"strings"

	"quiz-assessment-service/internal/domain"
)

// Identity headers set by the authenticating proxy in front of the service.
const (
	headerUserID    = "X-User-ID"
	headerUserName  = "X-User-Name"
	headerUserEmail = "X-User-Email"
)

func identityFromRequest(r *http.Request) domain.Identity {
	return domain.Identity{
		UserID:      strings.TrimSpace(r.Header.Get(headerUserID)),
		DisplayName: strings.TrimSpace(r.Header.Get(headerUserName)),
		Email:       strings.TrimSpace(r.Header.Get(headerUserEmail)),
	}
}

func requestMeta(r *http.Request) domain.RequestMeta {
	return domain.RequestMeta{IPAddress: clientIP(r), UserAgent: r.UserAgent()}
}

// clientIP returns the first public address found in X-Client-IP, then X-Forwarded-For.
// Without one it falls back to the connection's remote address.
func clientIP(r *http.Request) string {
	candidates := []string{r.Header.Get("X-Client-IP")}
	candidates = append(candidates, strings.Split(r.Header.Get("X-Forwarded-For"), ",")...)
	for _, c := range candidates {
		if ip := net.ParseIP(strings.TrimSpace(c)); ip != nil && isPublic(ip) {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isPublic(ip net.IP) bool {
	return !(ip.IsPrivate() || ip.IsLoopback() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast())
}
