package dto

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// alertEmailsRules rejects malformed alert recipients before they reach
// persistence; huma's schema tags cannot express per-element email checks.
type alertEmailsRules struct {
	AlertEmails []string `validate:"omitempty,dive,required,email"`
}

type endpointRules struct {
	ExecutionEndpoint string `validate:"omitempty,url"`
}

// ValidateCreateProjectRequest validates the create payload
func ValidateCreateProjectRequest(req *CreateProjectRequest) error {
	if err := validate.Struct(alertEmailsRules{AlertEmails: req.AlertEmails}); err != nil {
		return fmt.Errorf("invalid alert_emails: %w", err)
	}
	if err := validate.Struct(endpointRules{ExecutionEndpoint: req.ExecutionEndpoint}); err != nil {
		return fmt.Errorf("invalid execution_endpoint: %w", err)
	}
	return nil
}

// ValidateUpdateProjectRequest validates the update payload
func ValidateUpdateProjectRequest(req *UpdateProjectRequest) error {
	if req.AlertEmails != nil {
		if err := validate.Struct(alertEmailsRules{AlertEmails: *req.AlertEmails}); err != nil {
			return fmt.Errorf("invalid alert_emails: %w", err)
		}
	}
	if req.ExecutionEndpoint != nil && *req.ExecutionEndpoint != "" {
		if err := validate.Struct(endpointRules{ExecutionEndpoint: *req.ExecutionEndpoint}); err != nil {
			return fmt.Errorf("invalid execution_endpoint: %w", err)
		}
	}
	return nil
}
