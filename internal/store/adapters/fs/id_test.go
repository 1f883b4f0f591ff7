package fs

import (
	"regexp"
	"testing"
)

func TestNewTenantTaskIDFormat(t *testing.T) {
	re := regexp.MustCompile(`^tenant_[0-9a-f]{16}$`)

	// Todos los nibbles deben variar entre ids: ninguna posición puede
	// quedar fija (p.ej. un nibble de versión heredado del generador).
	seen := make([]map[byte]bool, 16)
	for i := range seen {
		seen[i] = make(map[byte]bool)
	}

	for i := 0; i < 256; i++ {
		id := newTenantTaskID()
		if !re.MatchString(id) {
			t.Fatalf("unexpected id format: %s", id)
		}
		hex := id[len("tenant_"):]
		for j := 0; j < len(hex); j++ {
			seen[j][hex[j]] = true
		}
	}

	for j, s := range seen {
		if len(s) < 2 {
			t.Errorf("nibble %d fijo en los 256 ids generados", j)
		}
	}
}
