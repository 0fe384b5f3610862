package document

import "errors"

var ErrInvalidCNPJ = errors.New("CNPJ is invalid.")

var cnpjWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}

// CNPJ is the Brazilian company registry number: 12 digits plus two mod-11
// check digits.
type CNPJ struct{}

func (CNPJ) TypeID() int { return TypeCNPJ }

func (CNPJ) Validate(value string) error {
	if len(value) != 14 || allSame(value) {
		return ErrInvalidCNPJ
	}

	for n := 12; n <= 13; n++ {
		r := weightedSum(value, cnpjWeights[13-n:]) % 11
		check := 0
		if r >= 2 {
			check = 11 - r
		}
		if int(value[n]-'0') != check {
			return ErrInvalidCNPJ
		}
	}
	return nil
}
