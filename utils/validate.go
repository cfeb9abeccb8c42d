package utils

import (
	"regexp"
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)

// ValidatePhone E.164 风格的号码校验
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
