// Package metadata assembles the diagnostic blob stored alongside each entry.
package metadata

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/LouisDeconinck/waitlist-template2/internal/waitlist"
)

// Sanitization caps for caller-declared additional fields.
const (
	maxExtraFields   = 24
	maxExtraKeyLen   = 64
	maxExtraValueLen = 1200
)

// useCaseKey collides with the dedicated use-case column and is dropped from
// additional fields to avoid duplication.
const useCaseKey = "useCase"

// Request headers copied into the metadata blob when present.
var headerAllowList = []string{
	"Accept",
	"Accept-Encoding",
	"Accept-Language",
	"Origin",
	"Host",
	"Priority",
	"Sec-Ch-Ua",
	"Sec-Ch-Ua-Mobile",
	"Sec-Ch-Ua-Platform",
	"Sec-Fetch-Dest",
	"Sec-Fetch-Mode",
	"Sec-Fetch-Site",
	"User-Agent",
	"X-Forwarded-Proto",
}

// Build combines the caller's metadata, sanitized additional fields,
// request-derived facts, the client device snapshot, allow-listed headers,
// and the edge snapshot into one nested structure. The result is stored
// verbatim; it is additive and never validated against a schema.
func Build(sub waitlist.Submission, info waitlist.EdgeInfo, r *http.Request) map[string]any {
	meta := map[string]any{
		"request": requestFacts(sub, info, r),
		"device":  deviceSnapshot(sub),
		"headers": allowedHeaders(r),
		"edge":    info,
	}
	if sub.Metadata != nil {
		meta["client"] = sub.Metadata
	}
	if fields := SanitizeFields(sub.AdditionalFields); len(fields) > 0 {
		meta["fields"] = fields
	}
	return meta
}

// SanitizeFields caps, trims, and stringifies caller-declared extra fields.
// Entries with empty keys or unusable values are dropped, as is any key
// shadowing the dedicated use-case column.
func SanitizeFields(fields map[string]any) map[string]string {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for key, value := range fields {
		if len(out) >= maxExtraFields {
			break
		}
		key = strings.TrimSpace(key)
		if key == "" || key == useCaseKey {
			continue
		}
		if len(key) > maxExtraKeyLen {
			key = key[:maxExtraKeyLen]
		}
		s := stringify(value)
		if s == "" {
			continue
		}
		if len(s) > maxExtraValueLen {
			s = s[:maxExtraValueLen]
		}
		out[key] = s
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case nil:
		return ""
	case map[string]any, []any:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func requestFacts(sub waitlist.Submission, info waitlist.EdgeInfo, r *http.Request) map[string]any {
	facts := map[string]any{
		"method": r.Method,
		"path":   r.URL.Path,
	}
	if query := r.URL.Query(); len(query) > 0 {
		facts["query"] = query
	}
	if sub.SourceURL != nil {
		facts["source_url"] = *sub.SourceURL
	} else if ref := r.Header.Get("Referer"); ref != "" {
		facts["source_url"] = ref
	}
	if info.RayID != "" {
		facts["trace_id"] = info.RayID
	}
	return facts
}

// deviceSnapshot duplicates the client-declared fields next to their
// dedicated columns so exports need only the blob.
func deviceSnapshot(sub waitlist.Submission) map[string]any {
	snapshot := map[string]any{}
	putInt := func(key string, v *int) {
		if v != nil {
			snapshot[key] = *v
		}
	}
	putStr := func(key string, v *string) {
		if v != nil {
			snapshot[key] = *v
		}
	}
	putBool := func(key string, v *bool) {
		if v != nil {
			snapshot[key] = *v
		}
	}
	putInt("screen_width", sub.ScreenWidth)
	putInt("screen_height", sub.ScreenHeight)
	putInt("viewport_width", sub.ViewportWidth)
	putInt("viewport_height", sub.ViewportHeight)
	putStr("platform", sub.Platform)
	putStr("timezone", sub.Timezone)
	putInt("timezone_offset", sub.TimezoneOffset)
	putStr("color_scheme", sub.ColorScheme)
	putStr("reduced_motion", sub.ReducedMotion)
	putBool("cookies_enabled", sub.CookiesEnabled)
	putBool("do_not_track", sub.DoNotTrack)
	putInt("device_memory", sub.DeviceMemory)
	putInt("hardware_concurrency", sub.HardwareConcurrency)
	putInt("max_touch_points", sub.MaxTouchPoints)
	return snapshot
}

func allowedHeaders(r *http.Request) map[string]string {
	headers := make(map[string]string, len(headerAllowList))
	for _, name := range headerAllowList {
		value := r.Header.Get(name)
		if name == "Host" && value == "" {
			value = r.Host
		}
		if value != "" {
			headers[strings.ToLower(name)] = value
		}
	}
	return headers
}
