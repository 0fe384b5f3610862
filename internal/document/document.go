// Package document validates identity documents. Each document type plugs in
// its own check-digit algorithm.
package document

import (
	"errors"
	"strings"
	"unicode"
)

var (
	ErrTypeRequired  = errors.New("Document Type Id is required.")
	ErrValueRequired = errors.New("Document value is required.")
	ErrUnknownType   = errors.New("Invalid Document Type Id.")
)

const (
	TypeCPF  = 1
	TypeCNPJ = 2
)

type Validator interface {
	TypeID() int
	// Validate checks an already-normalised value.
	Validate(value string) error
}

type Registry struct {
	validators map[int]Validator
}

func NewRegistry(validators ...Validator) *Registry {
	r := &Registry{validators: make(map[int]Validator, len(validators))}
	for _, v := range validators {
		r.validators[v.TypeID()] = v
	}
	return r
}

// DefaultRegistry knows the Brazilian CPF and CNPJ documents.
func DefaultRegistry() *Registry {
	return NewRegistry(CPF{}, CNPJ{})
}

// Validate normalises value to digits and runs the validator registered for
// typeID. The normalised value is returned for storage.
func (r *Registry) Validate(typeID int, value string) (string, error) {
	if typeID == 0 {
		return "", ErrTypeRequired
	}
	if strings.TrimSpace(value) == "" {
		return "", ErrValueRequired
	}

	v, ok := r.validators[typeID]
	if !ok {
		return "", ErrUnknownType
	}

	normalized := Digits(value)
	if err := v.Validate(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// Digits strips every non-digit rune.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

func weightedSum(digits string, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += int(digits[i]-'0') * w
	}
	return sum
}
