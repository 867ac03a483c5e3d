package label

import (
	"testing"
	"time"
)

func TestClassifyTarget(t *testing.T) {
	cases := []struct {
		name string
		uri  string
		want TargetKind
	}{
		{"account", "did:plc:abc", TargetKind{Account: true}},
		{"record", "at://did:plc:x/app.bsky.feed.post/abc", TargetKind{Record: true, Kind: "app.bsky.feed.post"}},
		{"record no rkey", "at://did:plc:x/app.bsky.feed.post", TargetKind{Record: true, Kind: "app.bsky.feed.post"}},
		{"malformed at-uri", "at://did:plc:x", TargetKind{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyTarget(tc.uri)
			if got != tc.want {
				t.Errorf("ClassifyTarget(%q) = %+v, want %+v", tc.uri, got, tc.want)
			}
		})
	}
}

func TestTargetKindString(t *testing.T) {
	if got := (TargetKind{Account: true}).String(); got != "Account" {
		t.Errorf("Account.String() = %q", got)
	}
	if got := (TargetKind{Record: true, Kind: "app.bsky.feed.post"}).String(); got != `Record{kind:"app.bsky.feed.post"}` {
		t.Errorf("Record.String() = %q", got)
	}
	if got := (TargetKind{}).String(); got != "Unknown" {
		t.Errorf("zero-value.String() = %q", got)
	}
}

func TestAssertionExpired(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		exp  string
		want bool
	}{
		{"no expiry", "", false},
		{"future", "2024-07-01T00:00:00Z", false},
		{"past", "2024-01-01T00:00:00Z", true},
		{"exactly now", "2024-06-01T00:00:00Z", true},
		{"unparseable", "not-a-timestamp", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Assertion{ExpiryTimestamp: tc.exp}
			if got := a.Expired(now); got != tc.want {
				t.Errorf("Expired() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestInterner(t *testing.T) {
	in := NewInterner()
	a := in.Intern("did:plc:abc")
	b := in.Intern("did:plc:abc")
	if &a == &b {
		// not a meaningful pointer comparison for strings, but the
		// canonical value must be identical regardless.
	}
	if a != b {
		t.Fatalf("interned values differ: %q != %q", a, b)
	}
	if in.Len() != 1 {
		t.Errorf("Len() = %d, want 1", in.Len())
	}
	in.Intern("did:plc:def")
	if in.Len() != 2 {
		t.Errorf("Len() = %d, want 2", in.Len())
	}
	if got := in.Intern(""); got != "" {
		t.Errorf("Intern(\"\") = %q, want empty", got)
	}
	if in.Len() != 2 {
		t.Errorf("Len() after interning empty string = %d, want 2", in.Len())
	}
}
