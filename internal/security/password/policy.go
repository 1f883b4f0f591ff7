package password

import "unicode"

// Policy define los requisitos mínimos de un password en registro.
type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// Validate evalúa s contra la policy. reasons acumula todos los
// incumplimientos (códigos estables, aptos para la respuesta HTTP), no
// solo el primero. La longitud cuenta runas, no bytes.
func (p Policy) Validate(s string) (ok bool, reasons []string) {
	if len([]rune(s)) < p.MinLength {
		reasons = append(reasons, "too_short")
	}

	var upper, lower, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	if p.RequireUpper && !upper {
		reasons = append(reasons, "missing_upper")
	}
	if p.RequireLower && !lower {
		reasons = append(reasons, "missing_lower")
	}
	if p.RequireDigit && !digit {
		reasons = append(reasons, "missing_digit")
	}
	if p.RequireSymbol && !symbol {
		reasons = append(reasons, "missing_symbol")
	}
	return len(reasons) == 0, reasons
}
