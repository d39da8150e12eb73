// Package redact scrubs secret-shaped fields and values before they reach a log
// sink or an HTTP response body.
package redact

import (
	"regexp"
	"strings"
)

const placeholder = "***REDACTED***"

var valuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bot[_-]?token|webhook[_-]?secret|admin[_-]?token|fairness[_-]?key|server[_-]?seed|password)["']?\s*[:=]\s*["']?([^"'\s,}]+)["']?`),
	regexp.MustCompile(`(?i)Bearer\s+([a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+)`),
}

// fieldNames lists substrings that mark a field as secret regardless of its value.
var fieldNames = []string{
	"bottoken", "webhooksecret", "admintoken", "fairnesskey", "serverseed",
	"password", "token", "secret", "apikey", "privatekey",
}

// String scrubs inline "key: value" occurrences of known secret shapes from s.
func String(s string) string {
	out := s
	for _, p := range valuePatterns {
		out = p.ReplaceAllString(out, "${1}: "+placeholder)
	}
	return out
}

// IsSecretField reports whether a structured-log field name should be redacted
// outright rather than scanned for patterns.
func IsSecretField(name string) bool {
	lower := strings.ToLower(strings.ReplaceAll(name, "_", ""))
	for _, candidate := range fieldNames {
		if strings.Contains(lower, candidate) {
			return true
		}
	}
	return false
}

// Fields returns a copy of fields with secret-shaped keys/values redacted.
func Fields(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		switch {
		case IsSecretField(k):
			out[k] = placeholder
		default:
			if s, ok := v.(string); ok {
				out[k] = String(s)
			} else {
				out[k] = v
			}
		}
	}
	return out
}
