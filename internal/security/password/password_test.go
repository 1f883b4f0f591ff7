package password

import (
	"strings"
	"testing"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	phc, err := Hash(Default, "correct horse battery 1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(phc, "$argon2id$v=19$") {
		t.Fatalf("unexpected PHC format: %s", phc)
	}
	if !Verify("correct horse battery 1", phc) {
		t.Error("expected verify to succeed")
	}
	if Verify("wrong password", phc) {
		t.Error("expected verify to fail for wrong password")
	}
}

func TestHashRejectsEmpty(t *testing.T) {
	if _, err := Hash(Default, ""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestVerifyMalformedPHC(t *testing.T) {
	malformed := []string{
		"",
		"plaintext",
		"$argon2id$v=18$m=65536,t=3,p=1$c2FsdA$ZGs",       // version incorrecta
		"$argon2i$v=19$m=65536,t=3,p=1$c2FsdA$ZGs",        // variante incorrecta
		"$argon2id$v=19$m=65536,t=3$c2FsdA$ZGs",           // falta p
		"$argon2id$v=19$m=0,t=3,p=1$c2FsdA$ZGs",           // m=0
		"$argon2id$v=19$m=65536,t=3,p=1$!!$ZGs",           // salt no base64
		"$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$",          // dk vacío
		"$argon2id$v=19$m=65536,t=3,p=999$c2FsdA$ZGs",     // p fuera de rango
		"$argon2id$v=19$m=65536,t=3,p=1,x=9$c2FsdA$ZGs",   // param desconocido
	}
	for _, phc := range malformed {
		if Verify("whatever", phc) {
			t.Errorf("expected verify false for %q", phc)
		}
	}
}

func TestPolicyValidate(t *testing.T) {
	p := Policy{MinLength: 8, RequireLower: true, RequireDigit: true}

	cases := []struct {
		in      string
		ok      bool
		reasons int
	}{
		{"abcdefg1", true, 0},
		{"short1", false, 1},       // too_short
		{"ABCDEFG1", false, 1},     // missing_lower
		{"abcdefgh", false, 1},     // missing_digit
		{"AB", false, 3},           // todo junto
	}
	for _, c := range cases {
		ok, reasons := p.Validate(c.in)
		if ok != c.ok {
			t.Errorf("Validate(%q) ok = %v, want %v", c.in, ok, c.ok)
		}
		if len(reasons) != c.reasons {
			t.Errorf("Validate(%q) reasons = %v, want %d", c.in, reasons, c.reasons)
		}
	}
}
