package auth

import (
	"fmt"
	"strings"

	"github.com/pquerna/otp/totp"
)

// TOTPKey is a freshly generated TOTP secret and its otpauth:// provisioning URL.
type TOTPKey struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// GenerateTOTP creates a new secret for account under issuer.
func GenerateTOTP(issuer, account string) (*TOTPKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		SecretSize:  20,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}
	return &TOTPKey{Secret: key.Secret(), URL: key.URL()}, nil
}

// ValidateTOTP checks a 6-digit code against secret for the current period (with skew of one).
func ValidateTOTP(code, secret string) bool {
	code = strings.TrimSpace(code)
	if code == "" || secret == "" {
		return false
	}
	return totp.Validate(code, secret)
}
