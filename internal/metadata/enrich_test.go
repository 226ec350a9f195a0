package metadata

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LouisDeconinck/waitlist-template2/internal/waitlist"
)

func TestSanitizeFieldsCapsAndDrops(t *testing.T) {
	t.Parallel()

	fields := map[string]any{
		"teamSize":  "3-10",
		"":          "dropped",
		"   ":       "dropped",
		"useCase":   "duplicate of dedicated column",
		"nested":    map[string]any{"a": 1},
		"listy":     []any{1, 2},
		"nil":       nil,
		"numeric":   float64(7),
		"boolean":   true,
		"longKey" + strings.Repeat("k", 100): "kept under truncated key",
		"longValue": strings.Repeat("v", 2000),
	}

	out := SanitizeFields(fields)
	require.Equal(t, "3-10", out["teamSize"])
	require.Equal(t, "7", out["numeric"])
	require.Equal(t, "true", out["boolean"])
	require.NotContains(t, out, "useCase")
	require.NotContains(t, out, "nested")
	require.NotContains(t, out, "listy")
	require.NotContains(t, out, "nil")
	require.NotContains(t, out, "")
	require.Len(t, out["longValue"], 1200)
	for key := range out {
		require.LessOrEqual(t, len(key), 64)
	}
}

func TestSanitizeFieldsEntryCap(t *testing.T) {
	t.Parallel()

	fields := make(map[string]any, 40)
	for i := 0; i < 40; i++ {
		fields[fmt.Sprintf("key%02d", i)] = "value"
	}
	out := SanitizeFields(fields)
	require.Len(t, out, 24)
}

func TestSanitizeFieldsEmpty(t *testing.T) {
	t.Parallel()

	require.Nil(t, SanitizeFields(nil))
	require.Nil(t, SanitizeFields(map[string]any{}))
	require.Nil(t, SanitizeFields(map[string]any{"useCase": "x", "": "y"}))
}

func TestBuildCombinesSections(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/api/waitlist?ref=homepage", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept-Language", "en-US")
	req.Header.Set("Origin", "https://landing.example")
	req.Header.Set("X-Secret", "should not appear")

	source := "https://landing.example/beta"
	width := 1920
	sub := waitlist.Submission{
		SourceURL:   &source,
		ScreenWidth: &width,
		Metadata:    map[string]any{"referrer": "https://x.com/"},
		AdditionalFields: map[string]any{
			"teamSize": "3-10",
			"useCase":  "dup",
		},
	}
	info := waitlist.EdgeInfo{IP: "203.0.113.9", Country: "NL", RayID: "ray-1"}

	meta := Build(sub, info, req)

	client, ok := meta["client"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "https://x.com/", client["referrer"])

	fields, ok := meta["fields"].(map[string]string)
	require.True(t, ok)
	require.Equal(t, "3-10", fields["teamSize"])
	require.NotContains(t, fields, "useCase")

	facts, ok := meta["request"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, http.MethodPost, facts["method"])
	require.Equal(t, "/api/waitlist", facts["path"])
	require.Equal(t, source, facts["source_url"])
	require.Equal(t, "ray-1", facts["trace_id"])

	device, ok := meta["device"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, 1920, device["screen_width"])

	headers, ok := meta["headers"].(map[string]string)
	require.True(t, ok)
	require.Equal(t, "Mozilla/5.0", headers["user-agent"])
	require.Equal(t, "en-US", headers["accept-language"])
	require.NotContains(t, headers, "x-secret")

	require.Equal(t, info, meta["edge"])
}

func TestBuildOmitsAbsentSections(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/api/waitlist", nil)
	meta := Build(waitlist.Submission{}, waitlist.EdgeInfo{}, req)
	require.NotContains(t, meta, "client")
	require.NotContains(t, meta, "fields")
	require.Contains(t, meta, "request")
	require.Contains(t, meta, "device")
}
