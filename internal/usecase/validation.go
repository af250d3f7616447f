package usecase

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/lapublica/leadflow/internal/entity"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func joinValidationErrors(errs []ValidationError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func ValidateAdvanceLeadStageInput(input AdvanceLeadStageInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.LeadID) == "" {
		errors = append(errors, ValidationError{"lead_id", "is required"})
	}
	if strings.TrimSpace(input.NewStatus) == "" {
		errors = append(errors, ValidationError{"status", "is required"})
	}
	if strings.TrimSpace(input.ActingUserID) == "" {
		errors = append(errors, ValidationError{"acting_user_id", "is required"})
	}
	return errors
}

func ValidateCreateLeadInput(input CreateLeadInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.CompanyName) == "" {
		errors = append(errors, ValidationError{"company_name", "is required"})
	} else if len(input.CompanyName) > 200 {
		errors = append(errors, ValidationError{"company_name", "must not exceed 200 characters"})
	}

	if strings.TrimSpace(input.ContactEmail) != "" {
		if _, err := mail.ParseAddress(input.ContactEmail); err != nil {
			errors = append(errors, ValidationError{"contact_email", "is invalid"})
		}
	}

	if strings.TrimSpace(input.ContactPhone) != "" && !isValidPhoneNumber(input.ContactPhone) {
		errors = append(errors, ValidationError{"contact_phone", "must be a valid phone number"})
	}

	if input.Priority != "" && !entity.Priority(input.Priority).Valid() {
		errors = append(errors, ValidationError{"priority", "must be low, medium, high or urgent"})
	}

	if input.Source != "" && input.Source != entity.LeadSourceManual && input.Source != entity.LeadSourceSourcing {
		errors = append(errors, ValidationError{"source", "must be manual or sourcing"})
	}

	if strings.TrimSpace(input.CreatedByID) == "" {
		errors = append(errors, ValidationError{"created_by_id", "is required"})
	}
	return errors
}

func ValidateAssignLeadInput(input AssignLeadInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.LeadID) == "" {
		errors = append(errors, ValidationError{"lead_id", "is required"})
	}
	if strings.TrimSpace(input.AssigneeID) == "" {
		errors = append(errors, ValidationError{"assignee_id", "is required"})
	}
	if strings.TrimSpace(input.ActingUserID) == "" {
		errors = append(errors, ValidationError{"acting_user_id", "is required"})
	}
	return errors
}

var nonDigits = regexp.MustCompile(`\D`)

// isValidPhoneNumber accepts Spanish numbers with or without the +34 prefix.
func isValidPhoneNumber(phone string) bool {
	cleaned := nonDigits.ReplaceAllString(phone, "")
	cleaned = strings.TrimPrefix(cleaned, "34")
	return len(cleaned) == 9
}
