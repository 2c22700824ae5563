package services

import model "github.com/buildgrid/sitewise/models"

// stageRank orders the lifecycle stages. Blocked is deliberately absent: it
// sits outside the order.
var stageRank = map[string]int{
	model.StagePlanned:    0,
	model.StageScheduled:  1,
	model.StageInProgress: 2,
	model.StageQAReview:   3,
	model.StageDone:       4,
}

// CanTransition reports whether a task may move from one stage to another.
// Forward moves go one stage at a time; backward moves are allowed anywhere
// above planned (site reality: work gets sent back). Blocked can be entered
// from and left to any stage except done.
func CanTransition(from, to string) bool {
	if from == to {
		return false
	}
	if from == model.StageDone {
		// Reopening lands in qa_review, nowhere else.
		return to == model.StageQAReview
	}
	if to == model.StageBlocked {
		return true
	}
	if from == model.StageBlocked {
		return to != model.StageDone
	}
	fromRank, ok := stageRank[from]
	if !ok {
		return false
	}
	toRank, ok := stageRank[to]
	if !ok {
		return false
	}
	if toRank > fromRank {
		return toRank == fromRank+1
	}
	return true
}

// MissingDependencies returns the dependency ids not present in known.
func MissingDependencies(deps []string, known map[string]bool) []string {
	var missing []string
	for _, id := range deps {
		if !known[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

// UnfinishedDependencies returns the dependency ids whose tasks are not done.
func UnfinishedDependencies(deps []string, stages map[string]string) []string {
	var unfinished []string
	for _, id := range deps {
		if stages[id] != model.StageDone {
			unfinished = append(unfinished, id)
		}
	}
	return unfinished
}
