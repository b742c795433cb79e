package domain

import (
	"fmt"
	"strings"

	"github.com/intercomtrust/trustledger/internal/platform/errors"
)

// Profile is a self-registered display name for an address. Registration
// always overwrites, including the registered timestamp.
type Profile struct {
	Alias      string `json:"alias"`
	Registered *int64 `json:"registered"`
}

// ValidateAlias checks the required alias field.
func ValidateAlias(alias string) error {
	if strings.TrimSpace(alias) == "" {
		return errors.New(errors.CodeInvalidInput, "alias is required")
	}
	if len(alias) > MaxAliasLen {
		return errors.New(errors.CodeInvalidInput, fmt.Sprintf("alias exceeds %d characters", MaxAliasLen))
	}
	return nil
}
