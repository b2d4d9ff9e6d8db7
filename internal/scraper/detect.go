package scraper

import (
	"bytes"
	"strings"
)

// blockSignature pairs a body marker with the challenge system it indicates.
type blockSignature struct {
	marker string
	source string
}

// Marketplace bot walls come in a handful of shapes: the classic
// "Robot Check" interstitial, the newer captcha-delivery variants, and
// generic CDN challenge pages when the storefront sits behind one.
var bodySignatures = []blockSignature{
	{"Robot Check", "amazon-captcha"},
	{"Type the characters you see in this image", "amazon-captcha"},
	{"api-services-support@amazon.com", "amazon-captcha"},
	{"validateCaptcha", "amazon-captcha"},
	{"captcha-delivery.com", "datadome"},
	{"Attention Required! | Cloudflare", "cloudflare"},
	{"cf-browser-verification", "cloudflare"},
	{"_Incapsula_Resource", "incapsula"},
	{"Request unsuccessful. Incapsula incident", "incapsula"},
	{"PerimeterX", "perimeterx"},
	{"px-captcha", "perimeterx"},
}

// DetectBlock inspects a fetch result and marks it blocked when the response
// looks like a bot challenge rather than page content. The check is
// heuristic: header hints first, then body markers on suspicious statuses or
// any 200 whose body carries a known signature.
func DetectBlock(r *FetchResult) {
	if r == nil || r.Error != "" {
		return
	}

	if src := headerSource(r.Headers); src != "" && challengeStatus(r.StatusCode) {
		r.Blocked = true
		r.BlockSrc = src
		return
	}

	// 503 with an otherwise empty body is Amazon throttling.
	if r.StatusCode == 503 && len(bytes.TrimSpace(r.Body)) == 0 {
		r.Blocked = true
		r.BlockSrc = "amazon-throttle"
		return
	}

	body := string(r.Body)
	for _, sig := range bodySignatures {
		if strings.Contains(body, sig.marker) {
			r.Blocked = true
			r.BlockSrc = sig.source
			return
		}
	}
}

func challengeStatus(code int) bool {
	switch code {
	case 403, 429, 503:
		return true
	}
	return false
}

func headerSource(headers map[string][]string) string {
	get := func(key string) string {
		for k, vals := range headers {
			if strings.EqualFold(k, key) && len(vals) > 0 {
				return vals[0]
			}
		}
		return ""
	}

	if server := strings.ToLower(get("Server")); strings.Contains(server, "cloudflare") {
		return "cloudflare"
	}
	if get("X-Amz-Cf-Id") != "" && get("X-Cache") == "Error from cloudfront" {
		return "cloudfront"
	}
	if get("X-Iinfo") != "" {
		return "incapsula"
	}
	return ""
}
