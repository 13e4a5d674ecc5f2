package resilience

import (
	"net/http"
	"strings"
)

// DetectBlock checks an HTTP response for signs of anti-bot protection.
// Blocked access (401/403, Cloudflare challenges, captcha walls) is a
// different failure class than a plain 404 or 500: it means the origin is
// refusing us specifically, and the caller should rotate strategy.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		if isCloudflare(resp) {
			return true, BlockCloudflare
		}
		return true, BlockForbidden
	}

	// Cloudflare sometimes challenges behind a 503.
	if resp.StatusCode == http.StatusServiceUnavailable && isCloudflare(resp) {
		return true, BlockCloudflare
	}

	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		(strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge")) {
		return true, BlockCloudflare
	}

	if strings.Contains(lower, "captcha") ||
		strings.Contains(lower, "recaptcha") ||
		strings.Contains(lower, "hcaptcha") ||
		strings.Contains(lower, "are you a robot") {
		return true, BlockCaptcha
	}

	// JS-only shell: very small body with noscript or meta refresh.
	if len(body) < 2000 && resp.StatusCode == http.StatusOK {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `meta http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}

func isCloudflare(resp *http.Response) bool {
	return resp.Header.Get("cf-ray") != "" ||
		resp.Header.Get("cf-cache-status") != "" ||
		strings.EqualFold(resp.Header.Get("server"), "cloudflare")
}
