package enums

import "fmt"

// HistoryEventType maps to the history_event_type_enum enum in Postgres.
type HistoryEventType string

const (
	HistoryEventAdd         HistoryEventType = "add"
	HistoryEventReduce      HistoryEventType = "reduce"
	HistoryEventManualEdit  HistoryEventType = "manual_edit"
	HistoryEventDeduction   HistoryEventType = "deduction"
	HistoryEventEdit        HistoryEventType = "edit"
	HistoryEventDelete      HistoryEventType = "delete"
	HistoryEventAdjustment  HistoryEventType = "adjustment"
	HistoryEventRestoration HistoryEventType = "restoration"
)

var validHistoryEventTypes = []HistoryEventType{
	HistoryEventAdd,
	HistoryEventReduce,
	HistoryEventManualEdit,
	HistoryEventDeduction,
	HistoryEventEdit,
	HistoryEventDelete,
	HistoryEventAdjustment,
	HistoryEventRestoration,
}

// IsValid reports whether the value matches the canonical history event enum.
func (t HistoryEventType) IsValid() bool {
	for _, candidate := range validHistoryEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseHistoryEventType converts raw input into HistoryEventType.
func ParseHistoryEventType(value string) (HistoryEventType, error) {
	for _, candidate := range validHistoryEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid history event type %q", value)
}
