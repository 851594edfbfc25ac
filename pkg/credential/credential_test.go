package credential

import (
	"encoding/base64"
	"errors"
	"testing"
)

func encode(s string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(s))
}

func TestDecode_Password(t *testing.T) {
	claim, err := Decode(encode("alice:s3cret"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claim.Kind != KindPassword {
		t.Errorf("Kind = %d, want KindPassword", claim.Kind)
	}
	if claim.Username != "alice" || claim.Secret != "s3cret" {
		t.Errorf("got %q/%q", claim.Username, claim.Secret)
	}
}

func TestDecode_Certificate(t *testing.T) {
	claim, err := Decode(encode("CN=alice,OU=platform"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claim.Kind != KindCertificate {
		t.Errorf("Kind = %d, want KindCertificate", claim.Kind)
	}
	if claim.Subject != "CN=alice,OU=platform" {
		t.Errorf("Subject = %q", claim.Subject)
	}
}

func TestDecode_Malformed(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"empty header", ""},
		{"no payload", "Basic"},
		{"too many header parts", "Basic abc def"},
		{"invalid base64", "Basic !!!not-base64!!!"},
		{"secret with colon", encode("alice:pa:ss")},
		{"empty payload", encode("")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(tc.header); !errors.Is(err, ErrMalformed) {
				t.Errorf("Decode(%q) err = %v, want ErrMalformed", tc.header, err)
			}
		})
	}
}
