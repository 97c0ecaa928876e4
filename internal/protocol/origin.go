package protocol

import "strings"

// OriginTier classifies how much trust the transport places in a declared
// origin. Sandboxed contexts without same-origin permission cannot supply a
// verifiable origin and occupy a distinct tier rather than a magic value.
type OriginTier uint8

const (
	// OriginVerified means the transport vouched for the origin value.
	OriginVerified OriginTier = iota
	// OriginUnverifiable means no origin could be established.
	OriginUnverifiable
)

func (t OriginTier) String() string {
	switch t {
	case OriginVerified:
		return "verified"
	case OriginUnverifiable:
		return "unverifiable"
	default:
		return "invalid"
	}
}

// Origin describes where an inbound message came from, as declared by the
// transport. Value is empty when the tier is OriginUnverifiable.
type Origin struct {
	Tier  OriginTier
	Value string
}

// VerifiedOrigin builds a transport-vouched origin.
func VerifiedOrigin(value string) Origin {
	return Origin{Tier: OriginVerified, Value: value}
}

// UnverifiableOrigin builds the sandboxed/unknown-origin case.
func UnverifiableOrigin() Origin {
	return Origin{Tier: OriginUnverifiable}
}

// WildcardFilter admits every origin.
const WildcardFilter = "*"

// OriginFilter is a per-channel admission rule for inbound origins. The
// wildcard admits everything. A non-wildcard filter admits verified origins
// whose value has the filter as a prefix, and always admits unverifiable
// origins (they carry no value to match against).
type OriginFilter string

func (f OriginFilter) Wildcard() bool {
	return string(f) == WildcardFilter || strings.TrimSpace(string(f)) == ""
}

// Admits reports whether an inbound message with the given origin passes.
func (f OriginFilter) Admits(origin Origin) bool {
	if f.Wildcard() {
		return true
	}
	if origin.Tier == OriginUnverifiable {
		return true
	}
	return strings.HasPrefix(origin.Value, string(f))
}
