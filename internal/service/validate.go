package service

import (
	"fmt"
	"strings"

	"server/internal/domain"
)

// ValidateRequest checks a generation request against the active provider
// contract. The first violation wins; nothing is persisted and no network
// call happens before validation passes.
func (s *JobService) ValidateRequest(input CreateVideoInput) error {
	contract := s.provider.Contract()

	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" {
		return domain.NewValidationError("prompt", "Prompt is required")
	}
	if len(prompt) > contract.MaxPromptLength {
		return domain.NewValidationError("prompt",
			fmt.Sprintf("Prompt must be at most %d characters", contract.MaxPromptLength))
	}
	if input.Duration != nil {
		if *input.Duration < contract.MinDuration || *input.Duration > contract.MaxDuration {
			return domain.NewValidationError("duration",
				fmt.Sprintf("Duration must be between %d and %d seconds", contract.MinDuration, contract.MaxDuration))
		}
	}
	if input.Resolution != "" && !contract.SupportsResolution(input.Resolution) {
		return domain.NewValidationError("resolution",
			fmt.Sprintf("Resolution must be one of %s", strings.Join(contract.Resolutions, ", ")))
	}
	if input.AspectRatio != "" && !contract.SupportsAspectRatio(input.AspectRatio) {
		return domain.NewValidationError("aspect_ratio",
			fmt.Sprintf("Aspect ratio must be one of %s", strings.Join(contract.AspectRatios, ", ")))
	}
	switch input.Priority {
	case "", domain.JobPriorityLow, domain.JobPriorityNormal, domain.JobPriorityHigh:
	default:
		return domain.NewValidationError("priority", "Priority must be low, normal or high")
	}
	return nil
}
