package tracker

import (
	"strings"
	"unicode/utf8"

	useragent "github.com/mssola/useragent"
)

const (
	UnknownToken   = "unknown"
	maxTokenLength = 50
)

type UserAgentInfo struct {
	Platform string
	Browser  string
	Mobile   bool
	Bot      bool
}

// ParseUserAgent extracts the platform and browser tokens from a User-Agent header
func ParseUserAgent(raw string) UserAgentInfo {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return UserAgentInfo{Platform: UnknownToken, Browser: UnknownToken}
	}

	ua := useragent.New(raw)

	platform := ua.OS()
	if platform == "" {
		platform = ua.Platform()
	}

	browser, _ := ua.Browser()
	if browser == "" {
		browser = firstProduct(raw)
	}

	return UserAgentInfo{
		Platform: clip(platform),
		Browser:  clip(browser),
		Mobile:   ua.Mobile(),
		Bot:      ua.Bot(),
	}
}

// Platform is shorthand for ParseUserAgent(raw).Platform
func Platform(raw string) string {
	return ParseUserAgent(raw).Platform
}

// firstProduct returns the product name of the first token, e.g. "curl" for "curl/8.4.0"
func firstProduct(raw string) string {
	token, _, _ := strings.Cut(raw, " ")
	name, _, _ := strings.Cut(token, "/")
	return name
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownToken
	}
	if utf8.RuneCountInString(s) <= maxTokenLength {
		return s
	}
	return string([]rune(s)[:maxTokenLength])
}
