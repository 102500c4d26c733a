package notify

import (
	"fmt"

	"github.com/nyaruka/phonenumbers"
)

// defaultRegion is assumed for numbers stored without a country prefix.
const defaultRegion = "TR"

// NormalizePhone parses a stored phone number and returns it in E.164 form.
func NormalizePhone(num string) (string, error) {
	if num == "" {
		return "", fmt.Errorf("missing number")
	}

	parsed, err := phonenumbers.Parse(num, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return "", fmt.Errorf("invalid phone number %q", num)
	}

	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
