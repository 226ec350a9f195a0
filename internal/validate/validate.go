// Package validate enforces the submission schema on normalized input.
package validate

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"github.com/LouisDeconinck/waitlist-template2/internal/waitlist"
)

// Field length caps. Email follows the RFC 3696 errata maximum.
const (
	MaxEmailLen       = 320
	maxQualifierLen   = 120
	maxUseCaseLen     = 2048
	maxSourceURLLen   = 2048
	maxLandingPathLen = 512
	maxUTMLen         = 256
	maxPlatformLen    = 128
	maxTimezoneLen    = 64
)

// Numeric ranges. The timezone offset cap matches UTC+/-14h in minutes.
const (
	maxTimezoneOffset      = 840
	maxDeviceMemory        = 128
	maxHardwareConcurrency = 256
	maxTouchPoints         = 64
	maxScreenDimension     = 32767
)

var colorSchemes = map[string]bool{
	"light":         true,
	"dark":          true,
	"no-preference": true,
}

var reducedMotions = map[string]bool{
	"reduce":        true,
	"no-preference": true,
}

// Submission rejects the normalized record on its first structural violation.
// The returned error is for logs only; callers surface one generic message so
// probing clients learn nothing about the schema.
func Submission(sub waitlist.Submission) error {
	if sub.Email == "" {
		return errors.New("email is required")
	}
	if len(sub.Email) > MaxEmailLen {
		return fmt.Errorf("email exceeds %d characters", MaxEmailLen)
	}
	if !validEmail(sub.Email) {
		return errors.New("email is not a valid address")
	}

	if err := maxLen("qualifier", sub.Qualifier, maxQualifierLen); err != nil {
		return err
	}
	if err := maxLen("use_case", sub.UseCase, maxUseCaseLen); err != nil {
		return err
	}
	if err := maxLen("source_url", sub.SourceURL, maxSourceURLLen); err != nil {
		return err
	}
	if sub.SourceURL != nil && !validHTTPURL(*sub.SourceURL) {
		return errors.New("source_url is not a valid http(s) URL")
	}
	if err := maxLen("landing_path", sub.LandingPath, maxLandingPathLen); err != nil {
		return err
	}

	for name, v := range map[string]*string{
		"utm_source":   sub.UTMSource,
		"utm_medium":   sub.UTMMedium,
		"utm_campaign": sub.UTMCampaign,
		"utm_term":     sub.UTMTerm,
		"utm_content":  sub.UTMContent,
	} {
		if err := maxLen(name, v, maxUTMLen); err != nil {
			return err
		}
	}

	if err := maxLen("platform", sub.Platform, maxPlatformLen); err != nil {
		return err
	}
	if err := maxLen("timezone", sub.Timezone, maxTimezoneLen); err != nil {
		return err
	}

	if err := inRange("timezone_offset", sub.TimezoneOffset, -maxTimezoneOffset, maxTimezoneOffset); err != nil {
		return err
	}
	if err := inRange("device_memory", sub.DeviceMemory, 0, maxDeviceMemory); err != nil {
		return err
	}
	if err := inRange("hardware_concurrency", sub.HardwareConcurrency, 1, maxHardwareConcurrency); err != nil {
		return err
	}
	if err := inRange("max_touch_points", sub.MaxTouchPoints, 0, maxTouchPoints); err != nil {
		return err
	}
	for name, v := range map[string]*int{
		"screen_width":    sub.ScreenWidth,
		"screen_height":   sub.ScreenHeight,
		"viewport_width":  sub.ViewportWidth,
		"viewport_height": sub.ViewportHeight,
	} {
		if err := inRange(name, v, 0, maxScreenDimension); err != nil {
			return err
		}
	}

	if sub.ColorScheme != nil && !colorSchemes[*sub.ColorScheme] {
		return fmt.Errorf("color_scheme %q is not recognized", *sub.ColorScheme)
	}
	if sub.ReducedMotion != nil && !reducedMotions[*sub.ReducedMotion] {
		return fmt.Errorf("reduced_motion %q is not recognized", *sub.ReducedMotion)
	}

	return nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	// Reject display-name forms like "Bob <bob@example.com>".
	return addr.Address == email && strings.Contains(email, "@")
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func maxLen(name string, value *string, limit int) error {
	if value == nil {
		return nil
	}
	if len(*value) > limit {
		return fmt.Errorf("%s exceeds %d characters", name, limit)
	}
	return nil
}

func inRange(name string, value *int, lo, hi int) error {
	if value == nil {
		return nil
	}
	if *value < lo || *value > hi {
		return fmt.Errorf("%s %d outside [%d, %d]", name, *value, lo, hi)
	}
	return nil
}
