package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidValue is returned when a record carries a token that is not a number.
var ErrInvalidValue = errors.New("ingest: invalid value")

func isSeparator(r rune) bool {
	return r == ',' || unicode.IsSpace(r)
}

// ParseValues splits a record value on commas and whitespace and parses
// every token as a float64. A single bad token rejects the whole record.
func ParseValues(data []byte) ([]float64, error) {
	tokens := strings.FieldsFunc(string(data), isSeparator)
	values := make([]float64, 0, len(tokens))

	for _, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidValue, tok)
		}

		values = append(values, v)
	}

	return values, nil
}
