package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	model "github.com/buildgrid/sitewise/models"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"forward one step", model.StagePlanned, model.StageScheduled, true},
		{"forward skipping a stage", model.StagePlanned, model.StageInProgress, false},
		{"planned straight to done", model.StagePlanned, model.StageDone, false},
		{"qa_review to done", model.StageQAReview, model.StageDone, true},
		{"backward move", model.StageQAReview, model.StageScheduled, true},
		{"in_progress back to planned", model.StageInProgress, model.StagePlanned, true},
		{"same stage", model.StageInProgress, model.StageInProgress, false},
		{"into blocked", model.StageScheduled, model.StageBlocked, true},
		{"out of blocked", model.StageBlocked, model.StageInProgress, true},
		{"blocked straight to done", model.StageBlocked, model.StageDone, false},
		{"done cannot be blocked", model.StageDone, model.StageBlocked, false},
		{"reopen done to qa_review", model.StageDone, model.StageQAReview, true},
		{"reopen done to planned", model.StageDone, model.StagePlanned, false},
		{"unknown from stage", "demolished", model.StagePlanned, false},
		{"unknown to stage", model.StagePlanned, "demolished", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransition(tc.from, tc.to))
		})
	}
}

func TestMissingDependencies(t *testing.T) {
	known := map[string]bool{"a": true, "b": true}

	assert.Nil(t, MissingDependencies(nil, known))
	assert.Nil(t, MissingDependencies([]string{"a", "b"}, known))
	assert.Equal(t, []string{"c"}, MissingDependencies([]string{"a", "c"}, known))
	assert.Equal(t, []string{"x", "y"}, MissingDependencies([]string{"x", "y"}, map[string]bool{}))
}

func TestUnfinishedDependencies(t *testing.T) {
	stages := map[string]string{
		"a": model.StageDone,
		"b": model.StageInProgress,
		"c": model.StageQAReview,
	}

	assert.Nil(t, UnfinishedDependencies([]string{"a"}, stages))
	assert.Equal(t, []string{"b", "c"}, UnfinishedDependencies([]string{"a", "b", "c"}, stages))
	// An id missing from the stage map counts as unfinished.
	assert.Equal(t, []string{"ghost"}, UnfinishedDependencies([]string{"ghost"}, stages))
}
