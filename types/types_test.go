package types

import (
	"strings"
	"testing"
)

func TestHashContent_Stable(t *testing.T) {
	a := HashContent([]byte("hello"))
	b := HashContent([]byte("hello"))
	if a != b {
		t.Fatalf("same bytes produced different hashes: %s vs %s", a, b)
	}

	c := HashContent([]byte("hello!"))
	if a == c {
		t.Fatal("different bytes produced the same hash")
	}
}

func TestParseContentHash_RoundTrip(t *testing.T) {
	h := HashContent([]byte("round trip"))

	parsed, err := ParseContentHash(h.String())
	if err != nil {
		t.Fatalf("ParseContentHash: %v", err)
	}
	if parsed != h {
		t.Fatalf("round trip mismatch: %s vs %s", parsed, h)
	}
}

func TestParseContentHash_Invalid(t *testing.T) {
	if _, err := ParseContentHash("not-hex"); err == nil {
		t.Fatal("expected error for non-hex input")
	}
	if _, err := ParseContentHash("abcd"); err == nil {
		t.Fatal("expected error for short input")
	}
}

func TestAssetKind_String(t *testing.T) {
	cases := map[AssetKind]string{
		KindImage:     "image",
		KindSvg:       "svg",
		KindAudio:     "audio",
		KindVideo:     "video",
		KindModel:     "model",
		KindAnimation: "animation",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(kind), got, want)
		}
	}
}

func TestAssetKind_NeedsCookie(t *testing.T) {
	if !KindAnimation.NeedsCookie() || !KindVideo.NeedsCookie() {
		t.Error("animation and video uploads require a cookie")
	}
	if KindImage.NeedsCookie() || KindAudio.NeedsCookie() {
		t.Error("image and audio uploads must not require a cookie")
	}
}

func TestCreator_Validate(t *testing.T) {
	if err := (Creator{Type: CreatorUser, ID: 42}).Validate(); err != nil {
		t.Fatalf("valid creator rejected: %v", err)
	}
	if err := (Creator{Type: "org", ID: 42}).Validate(); err == nil {
		t.Fatal("expected error for unknown creator type")
	}
	err := (Creator{Type: CreatorGroup}).Validate()
	if err == nil || !strings.Contains(err.Error(), "id") {
		t.Fatalf("expected missing-id error, got %v", err)
	}
}
