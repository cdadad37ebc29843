package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+55 (11) 91234-5678": "5511912345678",
		"5511912345678":       "5511912345678",
		"0055 11 91234 5678":  "5511912345678",
		"55-11-91234.5678":    "5511912345678",
		"":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePhone(in), "input %q", in)
	}
}

func TestNormalizePhoneDistinctNumbers(t *testing.T) {
	assert.NotEqual(t, NormalizePhone("5511912345678"), NormalizePhone("5511912345679"))
}
