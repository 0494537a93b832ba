// ABOUTME: Deal pipeline stages and their win probabilities
// ABOUTME: Holds the stage table, display names and the forward-edge rules of the pipeline view
package models

// Deal stages, in pipeline order.
const (
	StageProspecting = "prospecting"
	StageProposal    = "proposal"
	StageNegotiation = "negotiation"
	StageClosedWon   = "closed-won"
	StageClosedLost  = "closed-lost"
)

// Stages lists every deal stage in pipeline order.
var Stages = []string{StageProspecting, StageProposal, StageNegotiation, StageClosedWon, StageClosedLost}

var stageProbability = map[string]int{
	StageProspecting: 20,
	StageProposal:    50,
	StageNegotiation: 75,
	StageClosedWon:   100,
	StageClosedLost:  0,
}

var stageNames = map[string]string{
	StageProspecting: "Prospecting",
	StageProposal:    "Proposal",
	StageNegotiation: "Negotiation",
	StageClosedWon:   "Closed Won",
	StageClosedLost:  "Closed Lost",
}

var forwardEdges = map[string][]string{
	StageProspecting: {StageProposal},
	StageProposal:    {StageNegotiation},
	StageNegotiation: {StageClosedWon, StageClosedLost},
}

// StageProbability returns the win probability of a stage. The boolean is
// false for stages outside the table.
func StageProbability(stage string) (int, bool) {
	p, ok := stageProbability[stage]
	return p, ok
}

// IsValidStage reports whether stage is a known deal stage.
func IsValidStage(stage string) bool {
	_, ok := stageProbability[stage]
	return ok
}

// IsTerminalStage reports whether stage closes a deal.
func IsTerminalStage(stage string) bool {
	return stage == StageClosedWon || stage == StageClosedLost
}

// StageName returns the human label of a stage, or the stage itself when unknown.
func StageName(stage string) string {
	if name, ok := stageNames[stage]; ok {
		return name
	}
	return stage
}

// NextStages returns the stages a deal may be moved to from the pipeline view.
func NextStages(stage string) []string {
	next := forwardEdges[stage]
	out := make([]string, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from -> to is a forward pipeline edge.
func CanTransition(from, to string) bool {
	for _, s := range forwardEdges[from] {
		if s == to {
			return true
		}
	}
	return false
}
