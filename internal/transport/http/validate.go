package rest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"coinproxy/internal/coin"
)

// Most crypto symbols are 1-10 alphanumeric characters after upper-casing.
var symbolRe = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)

func errInvalid(msg string) error {
	return fmt.Errorf("%w: %s", coin.ErrInvalidRequest, msg)
}

func validateSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if symbol == "" {
		return "", errInvalid("symbol must not be empty")
	}
	if !symbolRe.MatchString(symbol) {
		return "", errInvalid("symbol must be 1-10 letters or digits")
	}
	return symbol, nil
}

func validateSymbols(raw []string, max int) ([]string, error) {
	if len(raw) == 0 {
		return nil, errInvalid("symbols must not be empty")
	}
	if len(raw) > max {
		return nil, errInvalid("cannot request more than " + strconv.Itoa(max) + " symbols at once")
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		symbol, err := validateSymbol(s)
		if err != nil {
			return nil, errInvalid("invalid symbol " + strconv.Quote(s))
		}
		out = append(out, symbol)
	}
	return out, nil
}

func (h *Handler) validateCurrency(raw string) (string, error) {
	currency := strings.ToUpper(strings.TrimSpace(raw))
	if currency == "" {
		return "", errInvalid("currency must not be empty")
	}
	if _, ok := h.currencies[currency]; !ok {
		return "", errInvalid("currency " + currency + " not supported")
	}
	return currency, nil
}
