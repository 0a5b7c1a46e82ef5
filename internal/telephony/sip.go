package telephony

import (
	"errors"
	"strings"
)

// SIPHeader is one header as delivered by the provider's handoff webhook.
type SIPHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Headers the provider forwards on handoff. The business ID rides a
// custom header; the caller number comes from identity headers with From
// as the last resort.
const (
	headerBusinessID       = "X-Business-Id"
	headerAssertedIdentity = "P-Asserted-Identity"
	headerFrom             = "From"
)

var (
	ErrNoBusinessHeader = errors.New("telephony: business header missing")
	ErrNoCallerNumber   = errors.New("telephony: caller number missing")
)

// CallInfo is what the coordination layer needs from the SIP boundary.
type CallInfo struct {
	BusinessID  string
	CallerPhone string
}

// ExtractCallInfo pulls the tenant and caller out of the handoff headers.
func ExtractCallInfo(headers []SIPHeader) (CallInfo, error) {
	var info CallInfo
	for _, h := range headers {
		switch {
		case strings.EqualFold(h.Name, headerBusinessID):
			if info.BusinessID == "" {
				info.BusinessID = strings.TrimSpace(h.Value)
			}
		case strings.EqualFold(h.Name, headerAssertedIdentity):
			if info.CallerPhone == "" {
				info.CallerPhone = parseSIPAddress(h.Value)
			}
		case strings.EqualFold(h.Name, headerFrom):
			if info.CallerPhone == "" {
				info.CallerPhone = parseSIPAddress(h.Value)
			}
		}
	}
	if info.BusinessID == "" {
		return CallInfo{}, ErrNoBusinessHeader
	}
	if info.CallerPhone == "" {
		return CallInfo{}, ErrNoCallerNumber
	}
	return info, nil
}

// parseSIPAddress extracts the user part of a SIP address in any of the
// common shapes: `sip:+15551234@host`, `<sip:+15551234@host>;tag=x`,
// `"Jane" <sip:+15551234@host>`, or a bare number.
func parseSIPAddress(value string) string {
	v := strings.TrimSpace(value)
	if start := strings.Index(v, "<"); start >= 0 {
		if end := strings.Index(v[start:], ">"); end > 0 {
			v = v[start+1 : start+end]
		}
	}
	v = strings.TrimPrefix(v, "sip:")
	v = strings.TrimPrefix(v, "tel:")
	if at := strings.Index(v, "@"); at >= 0 {
		v = v[:at]
	}
	if semi := strings.Index(v, ";"); semi >= 0 {
		v = v[:semi]
	}
	return strings.TrimSpace(v)
}
