package tracker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	windowsChrome = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	linuxFirefox  = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
)

func TestParseUserAgentPopulatesPlatform(t *testing.T) {
	info := ParseUserAgent(windowsChrome)
	assert.Contains(t, info.Platform, "Windows")
	assert.Equal(t, "Chrome", info.Browser)
	assert.False(t, info.Mobile)

	info = ParseUserAgent(linuxFirefox)
	assert.Contains(t, info.Platform, "Linux")
	assert.Equal(t, "Firefox", info.Browser)
}

func TestParseUserAgentFlags(t *testing.T) {
	info := ParseUserAgent("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	assert.True(t, info.Bot)
	assert.False(t, info.Mobile)

	info = ParseUserAgent("Mozilla/5.0 (iPhone; CPU iPhone OS 7_0_3 like Mac OS X) AppleWebKit/537.51.1 (KHTML, like Gecko) Version/7.0 Mobile/11B508 Safari/9537.53")
	assert.True(t, info.Mobile)
	assert.False(t, info.Bot)

	assert.False(t, ParseUserAgent(windowsChrome).Bot)
}

func TestParseUserAgentEmpty(t *testing.T) {
	info := ParseUserAgent("   ")
	assert.Equal(t, UnknownToken, info.Platform)
	assert.Equal(t, UnknownToken, info.Browser)
}

func TestParseUserAgentNonBrowser(t *testing.T) {
	info := ParseUserAgent("curl/8.4.0")
	assert.NotEmpty(t, info.Platform)
	assert.NotEmpty(t, info.Browser)
}

func TestPlatformIsBounded(t *testing.T) {
	raw := "Mozilla/5.0 (" + strings.Repeat("X", 200) + ")"
	assert.LessOrEqual(t, len([]rune(Platform(raw))), maxTokenLength)
}

func TestFirstProduct(t *testing.T) {
	assert.Equal(t, "curl", firstProduct("curl/8.4.0"))
	assert.Equal(t, "PostmanRuntime", firstProduct("PostmanRuntime/7.36.0 extra"))
	assert.Equal(t, "agent", firstProduct("agent"))
}
