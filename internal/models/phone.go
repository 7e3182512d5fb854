package models

import "regexp"

// Телефоны принимаем только в формате +7XXXXXXXXXX.
var phoneRe = regexp.MustCompile(`^\+7\d{10}$`)

// ValidPhone reports whether phone matches the canonical country-code
// prefixed format.
func ValidPhone(phone string) bool {
	return phoneRe.MatchString(phone)
}
