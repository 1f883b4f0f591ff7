package validation

import "regexp"

// Username rules:
// - Lowercase letters, digits, "_" y "-".
// - Start with a letter or digit.
// - Length 3..32.
// - Excludes whitespace, ":" and uppercase explicitly.
//
// Examples valid: alice, bob_01, img-worker2
// Examples invalid: ab, Alice, "two words", :lead, 33+ chars.
var usernameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{2,31}$`)

// Task type rules:
// - Lowercase letters, digits, "_" y "-".
// - Length 1..64.
//
// Examples valid: image, video_upscale, sdxl-turbo
// Examples invalid: "", IMAGE, "bad type", 65+ chars.
var taskTypeRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidUsername indica si el nombre de usuario cumple el patron permitido.
func ValidUsername(name string) bool {
	return usernameRe.MatchString(name)
}

// ValidTaskType indica si el tipo de tarea cumple el patron permitido.
func ValidTaskType(t string) bool {
	return taskTypeRe.MatchString(t)
}
