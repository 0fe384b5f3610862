package document

import "errors"

var ErrInvalidCPF = errors.New("CPF is invalid.")

// CPF is the Brazilian individual taxpayer number: 9 digits plus two
// mod-11 check digits.
type CPF struct{}

func (CPF) TypeID() int { return TypeCPF }

func (CPF) Validate(value string) error {
	if len(value) != 11 || allSame(value) {
		return ErrInvalidCPF
	}

	for n := 9; n <= 10; n++ {
		weights := make([]int, n)
		for i := range weights {
			weights[i] = n + 1 - i
		}
		check := (weightedSum(value, weights) * 10) % 11
		if check == 10 {
			check = 0
		}
		if int(value[n]-'0') != check {
			return ErrInvalidCPF
		}
	}
	return nil
}
