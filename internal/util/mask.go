// Package util reúne helpers pequeños sin dependencias del dominio.
package util

import "strings"

// MaskEmail reduce un email a una forma segura para logs: primera letra
// del usuario y del dominio, resto elidido. Entradas sin '@' se tratan
// como opacas.
func MaskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	user, dom, ok := strings.Cut(s, "@")
	if !ok || user == "" {
		if len(s) <= 3 {
			return "***"
		}
		return s[:1] + "…" + s[len(s)-1:]
	}

	if len(user) > 1 {
		user = user[:1] + "…"
	}
	parts := strings.Split(dom, ".")
	if len(parts[0]) > 1 {
		parts[0] = parts[0][:1] + "…"
	}
	return user + "@" + strings.Join(parts, ".")
}
