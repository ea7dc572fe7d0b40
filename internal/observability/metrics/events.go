package metrics

import "time"

// ChainRead records a contract read call.
func ChainRead(method, status string) {
	if !enabled {
		return
	}
	chainReadsTotal.WithLabelValues(method, status).Inc()
}

// ChainSubmission records the outcome of an approval transaction.
func ChainSubmission(status string) {
	if !enabled {
		return
	}
	chainSubmissionsTotal.WithLabelValues(status).Inc()
}

// OracleRequest records a merge-status lookup. result is merged, open or error.
func OracleRequest(result string) {
	if !enabled {
		return
	}
	oracleRequestsTotal.WithLabelValues(result).Inc()
}

// AgentCycle records a finished verification cycle.
func AgentCycle(status string, d time.Duration) {
	if !enabled {
		return
	}
	agentCyclesTotal.WithLabelValues(status).Inc()
	agentCycleDuration.Observe(d.Seconds())
}

// AgentMilestone records how a milestone was handled in a cycle.
func AgentMilestone(result string) {
	if !enabled {
		return
	}
	agentMilestones.WithLabelValues(result).Inc()
}

// AgentApproval records a ledger status transition for an approval.
func AgentApproval(status string) {
	if !enabled {
		return
	}
	agentApprovalsTotal.WithLabelValues(status).Inc()
}
