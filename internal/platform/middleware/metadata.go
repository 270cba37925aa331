package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

type contextKeyClientIP struct{}
type contextKeyClient struct{}

// ClientMetadata records the caller's IP and a short description of its user
// agent, such as "Chrome 120 (Windows 10)" or "curl 8.4.0".
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithClientMetadata(r.Context(), ClientIPFromRequest(r), DescribeUserAgent(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(contextKeyClientIP{}).(string); ok {
		return ip
	}
	return ""
}

// GetClient returns the user agent description stored by ClientMetadata.
func GetClient(ctx context.Context) string {
	if client, ok := ctx.Value(contextKeyClient{}).(string); ok {
		return client
	}
	return ""
}

func WithClientMetadata(ctx context.Context, clientIP, client string) context.Context {
	ctx = context.WithValue(ctx, contextKeyClientIP{}, clientIP)
	return context.WithValue(ctx, contextKeyClient{}, client)
}

// DescribeUserAgent condenses a User-Agent header into browser, version and OS.
func DescribeUserAgent(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	ua := useragent.New(header)
	name, version := ua.Browser()
	if name == "" {
		return header
	}
	desc := strings.TrimSpace(name + " " + version)
	if ua.Bot() {
		return desc + " (bot)"
	}
	if os := ua.OS(); os != "" {
		desc += " (" + os + ")"
	}
	return desc
}

// ClientIPFromRequest prefers proxy headers and falls back to RemoteAddr.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}
	return "unknown"
}
