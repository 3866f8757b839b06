package validator

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	AddressRX         = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	TransactionHashRX = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

type Validator struct {
	Errors []string `json:",omitempty"`
}

func (v Validator) HasErrors() bool {
	return len(v.Errors) != 0
}

func (v *Validator) AddError(message string) {
	if v.Errors == nil {
		v.Errors = []string{}
	}

	v.Errors = append(v.Errors, message)
}

func (v *Validator) Check(ok bool, message string) {
	if !ok {
		v.AddError(message)
	}
}

func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

func MaxRunes(value string, n int) bool {
	return utf8.RuneCountInString(value) <= n
}

func Matches(value string, rx *regexp.Regexp) bool {
	return rx.MatchString(value)
}

// IsAddress reports whether value is a 0x-prefixed 20-byte hex address.
func IsAddress(value string) bool {
	return Matches(value, AddressRX)
}

func IsUUID(value string) bool {
	return uuid.Validate(value) == nil
}
