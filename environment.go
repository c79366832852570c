package convexauth

import (
	"fmt"
	"strings"
)

// An Environment is a different context in which a convexauth server operates.
type Environment string

const (
	Demo        Environment = "DEMO"
	Development Environment = "DEVELOPMENT"
	Production  Environment = "PRODUCTION"
	Review      Environment = "REVIEW"
	Staging     Environment = "STAGING"
	Testing     Environment = "TESTING"
)

func (e Environment) String() string { return string(e) }

func (e Environment) Valid() error {
	switch e {
	case Demo, Development, Production, Review, Staging, Testing:
		return nil
	default:
		return ErrNotValid
	}
}

// UnmarshalText upper cases text and casts it into an Environment,
// returning an error if it is not a valid Environment.
//
// UnmarshalText implements [encoding.TextUnmarshaler].
func (e *Environment) UnmarshalText(text []byte) error {
	env := Environment(strings.ToUpper(strings.TrimSpace(string(text))))
	if err := env.Valid(); err != nil {
		return fmt.Errorf("%w: environment %q", err, text)
	}

	*e = env
	return nil
}

func (e Environment) IsDevelopment() bool {
	return e == Development
}

func (e Environment) IsDemo() bool {
	return e == Demo
}

func (e Environment) IsProduction() bool {
	return e == Production
}

func (e Environment) IsReview() bool {
	return e == Review
}

func (e Environment) IsStaging() bool {
	return e == Staging
}

func (e Environment) IsTesting() bool {
	return e == Testing
}

// SecureCookies asserts whether cookies set in the Environment
// must carry the Secure attribute.
func (e Environment) SecureCookies() bool {
	switch e {
	case Development, Testing:
		return false
	default:
		return true
	}
}
