// Package edge extracts the trusted network snapshot injected by the hosting
// edge in front of the service.
package edge

import (
	"net/http"
	"strings"

	"github.com/LouisDeconinck/waitlist-template2/internal/waitlist"
)

// UnknownIP is the shared rate-limit bucket for clients with no resolvable
// address.
const UnknownIP = "unknown"

// ClientIP resolves the connecting address. The edge-injected header wins;
// otherwise the first hop of X-Forwarded-For; otherwise UnknownIP.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return UnknownIP
}

// FromRequest assembles the full edge snapshot. Absent headers yield empty
// fields; nothing here is client-supplied.
func FromRequest(r *http.Request) waitlist.EdgeInfo {
	h := func(name string) string { return strings.TrimSpace(r.Header.Get(name)) }
	return waitlist.EdgeInfo{
		IP:             ClientIP(r),
		Country:        h("CF-IPCountry"),
		City:           h("CF-IPCity"),
		Continent:      h("CF-IPContinent"),
		Region:         h("CF-Region"),
		RegionCode:     h("CF-Region-Code"),
		PostalCode:     h("CF-Postal-Code"),
		Latitude:       h("CF-IPLatitude"),
		Longitude:      h("CF-IPLongitude"),
		Timezone:       h("CF-Timezone"),
		ASN:            h("CF-ASN"),
		ASOrganization: h("CF-AS-Organization"),
		BotScore:       h("CF-Bot-Score"),
		VerifiedBot:    h("CF-Verified-Bot"),
		TLSVersion:     h("CF-TLS-Version"),
		TLSCipher:      h("CF-TLS-Cipher"),
		HTTPProtocol:   h("CF-HTTP-Protocol"),
		Colo:           h("CF-Colo"),
		RayID:          h("CF-Ray"),
	}
}
