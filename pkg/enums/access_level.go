package enums

import (
	"fmt"
	"strings"
)

// AccessLevel gates what an operator may do in the back office.
type AccessLevel string

const (
	AccessLevelAdmin    AccessLevel = "ADMIN"
	AccessLevelManager  AccessLevel = "MANAGER"
	AccessLevelOperator AccessLevel = "OPERATOR"
)

var validAccessLevels = []AccessLevel{
	AccessLevelAdmin,
	AccessLevelManager,
	AccessLevelOperator,
}

func (a AccessLevel) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AccessLevel.
func (a AccessLevel) IsValid() bool {
	for _, candidate := range validAccessLevels {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAccessLevel converts raw input into an AccessLevel. Matching ignores case.
func ParseAccessLevel(value string) (AccessLevel, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validAccessLevels {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid access level %q", value)
}
