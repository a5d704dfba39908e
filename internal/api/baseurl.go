package api

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

const (
	// DefaultBackendPort is the port the backend listens on next to the
	// machine serving the client.
	DefaultBackendPort = "3001"
	defaultHost        = "localhost"
	apiPrefix          = "/api"
)

// ResolveBaseURL derives the backend base URL from the host the client is
// served from: same hostname, fixed backend port and /api prefix. Scheme and
// port of servedFrom are ignored. An empty or unparseable servedFrom yields
// the local default.
func ResolveBaseURL(servedFrom string) string {
	host := hostname(servedFrom)
	if host == "" {
		host = defaultHost
	}
	return "http://" + net.JoinHostPort(host, DefaultBackendPort) + apiPrefix
}

func hostname(servedFrom string) string {
	trimmed := strings.TrimSpace(servedFrom)
	if trimmed == "" {
		return ""
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// parseBaseURL normalises a configured base URL so relative endpoint paths
// resolve under it.
func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = ResolveBaseURL("")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse base url %q: missing host", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = apiPrefix
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
