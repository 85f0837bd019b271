package cryptox

import (
	"fmt"

	"github.com/sethvargo/go-password/password"
)

// GeneratePassword returns a random 20 character password with digits and
// symbols, used for the bootstrap admin account.
func GeneratePassword() (string, error) {
	pw, err := password.Generate(20, 4, 2, false, true)
	if err != nil {
		return "", fmt.Errorf("cryptox: generate password: %w", err)
	}
	return pw, nil
}
