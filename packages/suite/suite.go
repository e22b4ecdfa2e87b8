// Package suite determines the target suite set for a run.
package suite

// Selection describes the set of test identifiers handed to the external
// runner.
type Selection struct {
	Suites          []string
	FullSuite       bool
	Parallel        int
	IncludeWebhooks bool
}

// Select determines the target suite set. With no explicit tests the full
// default suite runs, optionally followed by the webhook suite. Any explicit
// test list forces serial execution regardless of the requested parallelism.
func Select(defaults []string, webhookSuite string, tests []string, parallel int, includeWebhooks bool) Selection {
	if len(tests) == 0 {
		suites := append([]string(nil), defaults...)
		if includeWebhooks && webhookSuite != "" {
			suites = append(suites, webhookSuite)
		}
		return Selection{
			Suites:          suites,
			FullSuite:       true,
			Parallel:        parallel,
			IncludeWebhooks: includeWebhooks,
		}
	}

	return Selection{
		Suites:          append([]string(nil), tests...),
		FullSuite:       false,
		Parallel:        1,
		IncludeWebhooks: includeWebhooks,
	}
}
