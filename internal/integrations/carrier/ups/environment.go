package ups

import (
	"fmt"
	"strings"
)

const (
	ProductionBaseURL = "https://onlinetools.ups.com"
	SandboxBaseURL    = "https://wwwcie.ups.com"
)

// Environment selects the UPS production service or the CIE sandbox.
// The zero value means production.
type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentSandbox    Environment = "sandbox"
)

// ParseEnvironment accepts "production"/"prod" and "sandbox"/"cie"/"testing";
// an empty string means production.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "production", "prod":
		return EnvironmentProduction, nil
	case "sandbox", "cie", "testing":
		return EnvironmentSandbox, nil
	default:
		return "", &ConfigurationError{Reason: fmt.Sprintf("unknown environment %q", s)}
	}
}

func (e Environment) normalize() (Environment, error) {
	return ParseEnvironment(string(e))
}

func (e Environment) IsSandbox() bool {
	return e == EnvironmentSandbox
}

func (e Environment) transactionSource() string {
	if e.IsSandbox() {
		return "testing"
	}
	return "production"
}
