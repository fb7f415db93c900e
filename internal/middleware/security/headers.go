// Package security applies response hardening headers and CORS to the
// JSON API.
package security

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// HeadersConfig holds security headers configuration
type HeadersConfig struct {
	// HSTS settings
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	CacheControl        string
	CrossOriginResource string
}

// DefaultHeadersConfig returns defaults for a JSON API. The API is meant
// to be called from other origins, so the resource policy is cross-origin.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		HSTSMaxAge:            31536000, // 1 year
		HSTSIncludeSubdomains: true,

		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "no-referrer",
		CacheControl:        "no-store",
		CrossOriginResource: "cross-origin",
	}
}

// HeadersMiddleware applies security headers to responses
type HeadersMiddleware struct {
	config HeadersConfig
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	return &HeadersMiddleware{config: config}
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.applyHeaders(w, r)
		next.ServeHTTP(w, r)
	})
}

func (h *HeadersMiddleware) applyHeaders(w http.ResponseWriter, r *http.Request) {
	headers := w.Header()

	setIf(headers, "X-Content-Type-Options", h.config.XContentTypeOptions)
	setIf(headers, "X-Frame-Options", h.config.XFrameOptions)
	setIf(headers, "Referrer-Policy", h.config.ReferrerPolicy)
	setIf(headers, "Cache-Control", h.config.CacheControl)
	setIf(headers, "Cross-Origin-Resource-Policy", h.config.CrossOriginResource)

	// HSTS header (only for HTTPS)
	if r.TLS != nil && h.config.HSTSMaxAge > 0 {
		hstsValue := fmt.Sprintf("max-age=%d", h.config.HSTSMaxAge)
		if h.config.HSTSIncludeSubdomains {
			hstsValue += "; includeSubDomains"
		}
		headers.Set("Strict-Transport-Security", hstsValue)
	}
}

func setIf(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}

// CORSConfig controls cross-origin access. An origin of "*" allows all.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// DefaultCORSConfig allows every origin, method and header.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	}
}

type CORSMiddleware struct {
	config CORSConfig
}

func NewCORSMiddleware(config CORSConfig) *CORSMiddleware {
	return &CORSMiddleware{config: config}
}

// Middleware answers preflight requests with 204 and decorates every
// other response from an allowed origin.
func (c *CORSMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		allowed, wildcard := c.allowOrigin(origin)
		if !allowed {
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		if wildcard {
			headers.Set("Access-Control-Allow-Origin", "*")
		} else {
			headers.Set("Access-Control-Allow-Origin", origin)
			headers.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			headers.Set("Access-Control-Allow-Methods", strings.Join(c.config.AllowedMethods, ", "))
			allowHeaders := strings.Join(c.config.AllowedHeaders, ", ")
			if allowHeaders == "*" {
				if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
					allowHeaders = reqHeaders
				}
			}
			headers.Set("Access-Control-Allow-Headers", allowHeaders)
			if c.config.MaxAge > 0 {
				headers.Set("Access-Control-Max-Age", strconv.Itoa(c.config.MaxAge))
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		headers.Set("Access-Control-Expose-Headers", "X-Request-ID")
		next.ServeHTTP(w, r)
	})
}

func (c *CORSMiddleware) allowOrigin(origin string) (allowed, wildcard bool) {
	for _, o := range c.config.AllowedOrigins {
		if o == "*" {
			return true, true
		}
		if strings.EqualFold(o, origin) {
			return true, false
		}
	}
	return false, false
}
