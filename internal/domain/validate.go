package domain

import "github.com/go-playground/validator/v10"

// validate is shared by every service; it caches struct metadata and is safe
// for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidEmail reports whether s is a bare address such as "a@b.example".
// Display-name forms are rejected.
func ValidEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}
