package utils

import (
	"regexp"
	"strings"
)

// SensitivePatterns contains regex patterns for values that must never reach
// a log file: API keys, bearer tokens and Telegram bot tokens.
var SensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|secret|token|password)\s*[:=]\s*['"]?([a-zA-Z0-9_\-+/=:]{8,})['"]?`),
	regexp.MustCompile(`(?i)(bearer\s+)([a-zA-Z0-9_\-+/=.]{20,})`),
	regexp.MustCompile(`\b\d{6,12}:[A-Za-z0-9_-]{30,}\b`), // Telegram bot tokens
	regexp.MustCompile(`(?i)(sk-[a-zA-Z0-9]{20,})`),
}

// SanitizeLog removes sensitive information from log messages
func SanitizeLog(message string) string {
	result := message

	for _, pattern := range SensitivePatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			lower := strings.ToLower(match)
			switch {
			case strings.HasPrefix(lower, "bearer"):
				return match[:len("bearer")] + " ***REDACTED***"
			case strings.HasPrefix(lower, "sk-"):
				return "sk-***REDACTED***"
			}
			if idx := strings.IndexAny(match, ":="); idx > 0 && !isDigits(match[:idx]) {
				return strings.TrimSpace(match[:idx]) + "=***REDACTED***"
			}
			return "***REDACTED***"
		})
	}

	return result
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
