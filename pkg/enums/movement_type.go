package enums

import "fmt"

// MovementType is the direction of an inventory movement.
type MovementType string

const (
	MovementIn  MovementType = "IN"
	MovementOut MovementType = "OUT"
)

func (m MovementType) String() string {
	return string(m)
}

// IsValid reports whether the value is IN or OUT.
func (m MovementType) IsValid() bool {
	return m == MovementIn || m == MovementOut
}

// ParseMovementType converts raw input into a MovementType.
func ParseMovementType(value string) (MovementType, error) {
	m := MovementType(value)
	if !m.IsValid() {
		return "", fmt.Errorf("invalid movement type %q", value)
	}
	return m, nil
}
