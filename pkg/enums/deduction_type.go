package enums

import "fmt"

// DeductionType maps to the deduction_type_enum enum in Postgres.
type DeductionType string

const (
	DeductionTypeCenter DeductionType = "center"
	DeductionTypeSide   DeductionType = "side"
	DeductionTypeManual DeductionType = "manual"
)

var validDeductionTypes = []DeductionType{
	DeductionTypeCenter,
	DeductionTypeSide,
	DeductionTypeManual,
}

// IsValid reports whether the value matches the canonical deduction type enum.
func (t DeductionType) IsValid() bool {
	for _, candidate := range validDeductionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// UsesInventory reports whether deductions of this type move parcel stock.
func (t DeductionType) UsesInventory() bool {
	return t == DeductionTypeCenter || t == DeductionTypeSide
}

// ParseDeductionType converts raw input into DeductionType. The legacy imports
// carried single-letter values for center and side, so those are accepted too.
func ParseDeductionType(value string) (DeductionType, error) {
	switch value {
	case "c":
		return DeductionTypeCenter, nil
	case "s":
		return DeductionTypeSide, nil
	}
	for _, candidate := range validDeductionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deduction type %q", value)
}
