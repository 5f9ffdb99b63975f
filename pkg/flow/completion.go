package flow

import (
	"github.com/virion-labs/onboardflow/pkg/models"
)

// Report is the result of analyzing a session's progress against the
// reachable path of its campaign.
type Report struct {
	// Complete is true once every required field on the reachable path
	// has a response. Required fields on skipped steps never block.
	Complete bool

	// CurrentStep is the step where collection halted, 0 when complete.
	CurrentStep int

	// Outstanding lists the unanswered enabled questions of the halting
	// step, in schema order. Empty when complete.
	Outstanding []*models.Question

	// MissingFields lists the required unanswered questions blocking the
	// halting step, in schema order.
	MissingFields []*models.Question

	// AnsweredRequired and TotalRequired count required fields on the
	// visited portion of the reachable path.
	AnsweredRequired int
	TotalRequired    int

	// Percentage is AnsweredRequired over TotalRequired on a 0-100
	// scale, 0 when the path has no required fields.
	Percentage float64
}

// AnalyzeCompletion walks the reachable path of the campaign under the
// given responses: starting at the first step, it repeatedly applies the
// branching resolver with the responses actually collected, stopping at
// the first step whose required fields are unanswered or at flow
// completion.
func (e *Engine) AnalyzeCompletion(campaign *models.Campaign, responses models.ResponseSet) *Report {
	report := &Report{}

	step := campaign.FirstStep()
	if step == 0 {
		// Nothing to collect.
		report.Complete = true

		return report
	}

	visited := make(map[int]bool)

	for step != 0 && !visited[step] {
		visited[step] = true

		var blocked bool

		for _, q := range campaign.QuestionsForStep(step) {
			answered := isAnswered(q.FieldKey, responses)

			if q.Required {
				report.TotalRequired++

				if answered {
					report.AnsweredRequired++
				} else {
					report.MissingFields = append(report.MissingFields, q)

					blocked = true
				}
			}

			if !answered {
				report.Outstanding = append(report.Outstanding, q)
			}
		}

		if blocked {
			report.CurrentStep = step

			break
		}

		// The step is satisfied; outstanding optional fields on it do not
		// hold up the flow.
		report.Outstanding = nil

		next, ok := e.ResolveNextStep(campaign, step, responses)
		if !ok {
			report.Complete = true

			break
		}

		if visited[next] {
			// A rule cycle would walk forever; treat the revisited step
			// as the end of the path.
			e.logger.Warn("Branching rules form a cycle",
				"campaign_id", campaign.ID, "step", next)

			report.Complete = true

			break
		}

		step = next
	}

	if report.Complete {
		report.CurrentStep = 0
		report.MissingFields = nil
		report.Outstanding = nil
	}

	if report.TotalRequired > 0 {
		report.Percentage = float64(report.AnsweredRequired) / float64(report.TotalRequired) * 100
	}

	return report
}

// isAnswered reports whether the field has a non-empty response. An empty
// string or empty array does not satisfy a required field.
func isAnswered(fieldKey string, responses models.ResponseSet) bool {
	value, ok := responses[fieldKey]

	return ok && !isEmptyValue(value)
}
