package payload

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/LouisDeconinck/waitlist-template2/internal/waitlist"
)

// Alias families accumulated across historical versions of the signup form.
// Order matters: the first alias that yields a usable value wins.
var (
	emailAliases       = []string{"email", "emailAddress", "email_address"}
	qualifierAliases   = []string{"qualifier", "role", "segment", "persona"}
	useCaseAliases     = []string{"useCase", "use_case", "intent", "description"}
	sourceURLAliases   = []string{"sourceUrl", "source_url", "source"}
	landingPathAliases = []string{"landingPath", "landing_path", "page_path"}
	honeypotAliases    = []string{"website", "hp", "honeypot"}
	extraFieldAliases  = []string{"additionalFields", "additional_fields", "extraFields", "extra_fields"}
)

// Normalize maps the loosely-typed field map onto a canonical Submission.
// Every coercion is total: unusable values become absent, never an error.
func Normalize(fields map[string]any) waitlist.Submission {
	sub := waitlist.Submission{
		Qualifier:   stringField(fields, qualifierAliases...),
		UseCase:     stringField(fields, useCaseAliases...),
		SourceURL:   stringField(fields, sourceURLAliases...),
		LandingPath: stringField(fields, landingPathAliases...),

		UTMSource:   stringField(fields, "utmSource", "utm_source"),
		UTMMedium:   stringField(fields, "utmMedium", "utm_medium"),
		UTMCampaign: stringField(fields, "utmCampaign", "utm_campaign"),
		UTMTerm:     stringField(fields, "utmTerm", "utm_term"),
		UTMContent:  stringField(fields, "utmContent", "utm_content"),

		ScreenWidth:         intField(fields, "screenWidth", "screen_width"),
		ScreenHeight:        intField(fields, "screenHeight", "screen_height"),
		ViewportWidth:       intField(fields, "viewportWidth", "viewport_width"),
		ViewportHeight:      intField(fields, "viewportHeight", "viewport_height"),
		Platform:            stringField(fields, "platform"),
		Timezone:            stringField(fields, "timezone"),
		TimezoneOffset:      intField(fields, "timezoneOffset", "timezone_offset"),
		ColorScheme:         stringField(fields, "colorScheme", "color_scheme"),
		ReducedMotion:       stringField(fields, "reducedMotion", "reduced_motion"),
		CookiesEnabled:      boolField(fields, "cookiesEnabled", "cookies_enabled"),
		DoNotTrack:          boolField(fields, "doNotTrack", "do_not_track"),
		DeviceMemory:        intField(fields, "deviceMemory", "device_memory"),
		HardwareConcurrency: intField(fields, "hardwareConcurrency", "hardware_concurrency"),
		MaxTouchPoints:      intField(fields, "maxTouchPoints", "max_touch_points"),

		Metadata:         objectField(fields, "metadata"),
		AdditionalFields: objectField(fields, extraFieldAliases...),
	}

	if email := stringField(fields, emailAliases...); email != nil {
		sub.Email = strings.ToLower(*email)
	}
	if hp := stringField(fields, honeypotAliases...); hp != nil {
		sub.Honeypot = *hp
	}
	return sub
}

// stringField returns the first alias that coerces to a non-empty trimmed
// string.
func stringField(fields map[string]any, keys ...string) *string {
	for _, key := range keys {
		value, ok := fields[key]
		if !ok {
			continue
		}
		if s := coerceString(value); s != nil {
			return s
		}
	}
	return nil
}

func coerceString(value any) *string {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		s = v.String()
	default:
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// intField accepts numbers and numeric strings, truncating to integer.
func intField(fields map[string]any, keys ...string) *int {
	for _, key := range keys {
		value, ok := fields[key]
		if !ok {
			continue
		}
		if n := coerceInt(value); n != nil {
			return n
		}
	}
	return nil
}

func coerceInt(value any) *int {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(math.Trunc(f))
	return &n
}

// boolField accepts literal booleans plus the case-insensitive string
// literals true/1/yes and false/0/no.
func boolField(fields map[string]any, keys ...string) *bool {
	for _, key := range keys {
		value, ok := fields[key]
		if !ok {
			continue
		}
		if b := coerceBool(value); b != nil {
			return b
		}
	}
	return nil
}

func coerceBool(value any) *bool {
	switch v := value.(type) {
	case bool:
		return &v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			b := true
			return &b
		case "false", "0", "no":
			b := false
			return &b
		}
	}
	return nil
}

// objectField accepts an already-structured object or a JSON-encoded string.
// Unparsable or non-object input yields nil.
func objectField(fields map[string]any, keys ...string) map[string]any {
	for _, key := range keys {
		value, ok := fields[key]
		if !ok {
			continue
		}
		if obj := coerceObject(value); obj != nil {
			return obj
		}
	}
	return nil
}

func coerceObject(value any) map[string]any {
	switch v := value.(type) {
	case map[string]any:
		return v
	case string:
		var obj map[string]any
		if err := json.Unmarshal([]byte(v), &obj); err != nil {
			return nil
		}
		return obj
	}
	return nil
}
