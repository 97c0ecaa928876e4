package protocol

import "testing"

func TestOriginFilterWildcard(t *testing.T) {
	for _, raw := range []string{"*", "", "  "} {
		f := OriginFilter(raw)
		if !f.Wildcard() {
			t.Fatalf("filter %q should be wildcard", raw)
		}
		if !f.Admits(VerifiedOrigin("https://anywhere.example")) {
			t.Fatalf("wildcard %q rejected a verified origin", raw)
		}
		if !f.Admits(UnverifiableOrigin()) {
			t.Fatalf("wildcard %q rejected an unverifiable origin", raw)
		}
	}
}

func TestOriginFilterPrefixMatch(t *testing.T) {
	f := OriginFilter("https://app.example")

	if !f.Admits(VerifiedOrigin("https://app.example")) {
		t.Fatalf("exact match rejected")
	}
	if !f.Admits(VerifiedOrigin("https://app.example:8443/embed")) {
		t.Fatalf("prefix match rejected")
	}
	if f.Admits(VerifiedOrigin("https://evil.example")) {
		t.Fatalf("non-matching origin admitted")
	}
	if f.Admits(VerifiedOrigin("")) {
		t.Fatalf("empty verified origin admitted by non-wildcard filter")
	}
}

func TestOriginFilterAdmitsUnverifiableTier(t *testing.T) {
	f := OriginFilter("https://app.example")
	if !f.Admits(UnverifiableOrigin()) {
		t.Fatalf("unverifiable tier must pass non-wildcard filters")
	}
}

func TestOriginTierString(t *testing.T) {
	if OriginVerified.String() != "verified" || OriginUnverifiable.String() != "unverifiable" {
		t.Fatalf("unexpected tier strings: %s %s", OriginVerified, OriginUnverifiable)
	}
}
