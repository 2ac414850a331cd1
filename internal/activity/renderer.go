// Package activity turns raw ticket activity records into readable sentences.
package activity

import (
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk-portal/internal/domain"
)

// NameLookup resolves a profile id to a display name.
type NameLookup func(id string) (string, bool)

// Names is a NameLookup backed by a map.
func Names(m map[string]string) NameLookup {
	return func(id string) (string, bool) {
		name, ok := m[id]
		return name, ok
	}
}

// Describe renders a deterministic sentence for a. It never mutates its input.
func Describe(a domain.TicketActivity, names NameLookup) string {
	switch a.ActionType {
	case domain.ActionCreated:
		return "Created the ticket"
	case domain.ActionStatusChanged:
		return fmt.Sprintf("Changed status from %s to %s", label(a.OldValue), label(a.NewValue))
	case domain.ActionAssigned:
		if a.OldValue == nil || *a.OldValue == "" {
			return fmt.Sprintf("Assigned the ticket to %s", person(a.NewValue, names, "Unassigned"))
		}
		return fmt.Sprintf("Reassigned the ticket from %s to %s",
			person(a.OldValue, names, "Unassigned"), person(a.NewValue, names, "Unassigned"))
	case domain.ActionPriorityChanged:
		return fmt.Sprintf("Changed priority from %s to %s", label(a.OldValue), label(a.NewValue))
	case domain.ActionCategoryChanged:
		return fmt.Sprintf("Changed category from %s to %s", raw(a.OldValue), raw(a.NewValue))
	case domain.ActionSubmitterChanged:
		return fmt.Sprintf("Changed submitter from %s to %s",
			person(a.OldValue, names, "None"), person(a.NewValue, names, "None"))
	case domain.ActionRepliedHelpdesk:
		return "Replied to the user"
	case domain.ActionRepliedUser:
		return "Added a reply"
	case domain.ActionApproved:
		return "Approved the request"
	case domain.ActionRejected:
		if a.NewValue != nil && *a.NewValue != "" {
			return fmt.Sprintf("Rejected the request: %s", *a.NewValue)
		}
		return "Rejected the request"
	default:
		return fmt.Sprintf("Performed action: %s", a.ActionType)
	}
}

// label humanizes enum values such as in_progress.
func label(v *string) string {
	if v == nil || *v == "" {
		return "None"
	}
	words := strings.Split(*v, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func raw(v *string) string {
	if v == nil || *v == "" {
		return "None"
	}
	return *v
}

func person(id *string, names NameLookup, empty string) string {
	if id == nil || *id == "" {
		return empty
	}
	if names != nil {
		if name, ok := names(*id); ok && name != "" {
			return name
		}
	}
	return *id
}
