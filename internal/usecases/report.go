package usecases

import (
	"math"
	"strings"

	"github.com/learning-assistant/test-select/internal/domain"
)

// BuildImpactReport derives the impact metrics from the test map and the
// selection. The reduction percentage is round(100 * (total - selected) /
// total), defined as 0 when the map is empty. The estimated time saving
// scales the reduction by the given linear factor; it is a heuristic
// estimate, not a measurement.
func BuildImpactReport(testMap domain.TestMap, sel domain.Selection, factor float64) domain.ImpactReport {
	total := len(testMap)
	selected := len(sel.Tests)

	reduction := 0
	if total > 0 {
		reduction = int(math.Round(100 * float64(total-selected) / float64(total)))
	}

	return domain.ImpactReport{
		TotalTests:             total,
		SelectedTests:          selected,
		ReductionPercent:       reduction,
		EstimatedSavingPercent: int(math.Round(float64(reduction) * factor)),
	}
}

// BuildCommands produces one concrete command per runner profile. A profile
// lists the selected tests explicitly; when the selection is empty or a
// manifest change forced full selection, the profile's run-all form is used
// instead, so a command never targets zero tests.
func BuildCommands(sel domain.Selection, runners []domain.RunnerProfile) []domain.RunnerCommand {
	commands := make([]domain.RunnerCommand, 0, len(runners))

	for _, profile := range runners {
		cmd := profile.Command
		switch {
		case sel.RunAll || len(sel.Tests) == 0:
			if profile.RunAllArgs != "" {
				cmd += " " + profile.RunAllArgs
			}
		default:
			cmd += " " + strings.Join(sel.Tests, " ")
		}
		commands = append(commands, domain.RunnerCommand{
			Runner:  profile.Name,
			Command: cmd,
		})
	}

	return commands
}

// BuildMatrix groups the selected tests into CI matrix entries, one per
// non-empty category. Tests outside every category root are grouped by the
// directory under their test root. When nothing is selected, a single
// zero-count smoke placeholder keeps the matrix non-empty.
func BuildMatrix(sel domain.Selection, rules domain.MatchRules) []domain.MatrixEntry {
	groups := make(map[string][]string)
	var order []string

	appendTest := func(name, test string) {
		if _, seen := groups[name]; !seen {
			order = append(order, name)
		}
		groups[name] = append(groups[name], test)
	}

	for _, test := range sel.Tests {
		appendTest(categoryFor(test, rules), test)
	}

	if len(order) == 0 {
		return []domain.MatrixEntry{{Category: domain.SmokeCategory, Tests: "", Count: 0}}
	}

	entries := make([]domain.MatrixEntry, 0, len(order))
	for _, name := range order {
		tests := groups[name]
		entries = append(entries, domain.MatrixEntry{
			Category: name,
			Tests:    strings.Join(tests, " "),
			Count:    len(tests),
		})
	}
	return entries
}

// categoryFor names the matrix group for a selected test: the category rule
// whose root contains it, else the directory segment under its test root,
// else "other".
func categoryFor(test string, rules domain.MatchRules) string {
	for _, rule := range rules.Categories {
		if underRoot(test, rule.TestRoot) {
			return rule.Name
		}
	}
	if parts := strings.Split(test, "/"); len(parts) >= 3 {
		return parts[1]
	}
	return "other"
}
