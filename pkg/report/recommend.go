package report

import "fmt"

const (
	staleDays     = 90
	cleanupCount  = 5
	criticalAvgMs = 5000
)

// recommendations derives the advice list for a report. Rules are evaluated
// independently in a fixed order, so identical input stats always produce
// the same list.
func recommendations(rep *UsageReport) []string {
	recs := make([]string, 0, 6)

	if rep.Summary.UnusedCount == 0 {
		recs = append(recs, "All registered endpoints received traffic within the threshold. No cleanup needed.")
	}

	var stale, neverUsed int
	for _, u := range rep.UnusedEndpoints {
		if u.DaysSinceLastUse > staleDays {
			stale++
		}
		if u.TotalRequests == 0 {
			neverUsed++
		}
	}
	if stale > 0 {
		recs = append(recs, fmt.Sprintf("%d endpoint(s) have been unused for more than %d days. Consider removing them.", stale, staleDays))
	}
	if neverUsed > 0 {
		recs = append(recs, fmt.Sprintf("%d endpoint(s) have never received a single request. Verify they are still needed.", neverUsed))
	}
	if rep.Summary.UnusedCount > cleanupCount {
		recs = append(recs, fmt.Sprintf("%d unused endpoints found. An API cleanup pass is recommended.", rep.Summary.UnusedCount))
	}

	if rep.Summary.SlowCount > 0 {
		recs = append(recs, fmt.Sprintf("%d endpoint(s) exceed the slow response threshold. Consider profiling, caching, or pagination.", rep.Summary.SlowCount))

		var critical int
		for _, st := range rep.SlowEndpoints {
			if st.AverageResponseTime > criticalAvgMs {
				critical++
			}
		}
		if critical > 0 {
			recs = append(recs, fmt.Sprintf("CRITICAL: %d endpoint(s) average over %dms per request.", critical, criticalAvgMs))
		}
	}

	if rep.Summary.HighErrorCount > 0 {
		recs = append(recs, fmt.Sprintf("%d endpoint(s) show an elevated error rate. Check server logs for recurring failures.", rep.Summary.HighErrorCount))
	}

	return recs
}
