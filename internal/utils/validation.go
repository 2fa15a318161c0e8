package utils

import (
	"fmt"

	"github.com/asaskevich/govalidator"
)

// ValidateURL will validate the given string as an absolute URL. Client
// supplied redirect targets go through this before they are forwarded to the
// payment provider.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("url cannot be empty")
	}

	if !govalidator.IsRequestURL(rawURL) {
		return fmt.Errorf("%q is not a valid URL", rawURL)
	}

	return nil
}
