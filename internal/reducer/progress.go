package reducer

import (
	"math"

	"github.com/duoplan/duoplan/internal/plan"
)

// recomputeProgress refreshes a goal's derived ProgressPercentage and Status.
// Called on every mutation that touches contributions or tasks, and on
// add/update of the goal itself so that caller-supplied derived fields are
// never trusted.
//
// Financial goals: round2(min(100, 100 * sum(contributions) / target)),
// with target <= 0 treated as zero progress (guards divide-by-zero).
// Task goals: round(100 * completed / total), zero tasks is zero progress.
func recomputeProgress(g *plan.Goal) {
	switch {
	case g.FinancialTarget > 0:
		var total float64
		for _, c := range g.Contributions {
			total += c.Amount
		}
		g.ProgressPercentage = round2(math.Min(100, 100*total/g.FinancialTarget))
	case len(g.Tasks) > 0:
		completed := 0
		for _, t := range g.Tasks {
			if t.Done {
				completed++
			}
		}
		g.ProgressPercentage = math.Round(100 * float64(completed) / float64(len(g.Tasks)))
	default:
		g.ProgressPercentage = 0
	}

	switch {
	case g.ProgressPercentage >= 100:
		g.Status = plan.StatusCompleted
	case g.ProgressPercentage > 0:
		g.Status = plan.StatusInProgress
	default:
		g.Status = plan.StatusNotStarted
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
