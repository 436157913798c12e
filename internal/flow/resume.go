package flow

import "github.com/BradenHooton/alumni-onboard/internal/models"

// Resume picks the step a launch starts at. It is the only place that
// decides which completed steps may be skipped.
func Resume(facts models.SessionFacts) models.Step {
	switch {
	case !facts.HasToken():
		return models.StepLanding
	case !facts.Approved:
		return models.StepJoin
	default:
		return models.StepDashboard
	}
}
