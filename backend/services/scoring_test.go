package services

import (
	"testing"

	"edutest/backend/models"

	"github.com/stretchr/testify/assert"
)

func mcq(id uint, points float64, correctOption uint, others ...uint) models.Question {
	q := models.Question{Points: points}
	q.ID = id
	correct := models.AnswerOption{Correct: true}
	correct.ID = correctOption
	q.Options = append(q.Options, correct)
	for _, o := range others {
		opt := models.AnswerOption{}
		opt.ID = o
		q.Options = append(q.Options, opt)
	}
	return q
}

func TestScoreAttempt(t *testing.T) {
	// four questions worth 1 point each, correct options 11/21/31/41
	questions := []models.Question{
		mcq(1, 1, 11, 12, 13, 14),
		mcq(2, 1, 21, 22, 23, 24),
		mcq(3, 1, 31, 32, 33, 34),
		mcq(4, 1, 41, 42, 43, 44),
	}

	tests := []struct {
		name       string
		selections map[uint]uint
		earned     float64
		percentage float64
		passed     bool
	}{
		{
			name:       "three of four below threshold",
			selections: map[uint]uint{1: 11, 2: 21, 3: 31, 4: 42},
			earned:     3, percentage: 75, passed: false,
		},
		{
			name:       "all four passes",
			selections: map[uint]uint{1: 11, 2: 21, 3: 31, 4: 41},
			earned:     4, percentage: 100, passed: true,
		},
		{
			name:       "unanswered questions earn nothing",
			selections: map[uint]uint{1: 11},
			earned:     1, percentage: 25, passed: false,
		},
		{
			name:       "no answers at all",
			selections: map[uint]uint{},
			earned:     0, percentage: 0, passed: false,
		},
		{
			name:       "unknown option id scores wrong",
			selections: map[uint]uint{1: 99, 2: 21, 3: 31, 4: 41},
			earned:     3, percentage: 75, passed: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			score := ScoreAttempt(questions, tc.selections, 80)
			assert.Equal(t, tc.earned, score.EarnedPoints)
			assert.Equal(t, 4.0, score.TotalPoints)
			assert.InDelta(t, tc.percentage, score.ScorePercentage, 0.001)
			assert.Equal(t, tc.passed, score.Passed)
		})
	}
}

func TestScoreAttemptWeightedPoints(t *testing.T) {
	questions := []models.Question{
		mcq(1, 3, 11, 12, 13, 14),
		mcq(2, 1, 21, 22, 23, 24),
	}

	// only the heavy question answered correctly: 3/4 = 75%
	score := ScoreAttempt(questions, map[uint]uint{1: 11, 2: 22}, 70)
	assert.Equal(t, 3.0, score.EarnedPoints)
	assert.InDelta(t, 75.0, score.ScorePercentage, 0.001)
	assert.True(t, score.Passed)

	for _, r := range score.Results {
		if r.QuestionID == 1 {
			assert.True(t, r.Correct)
			assert.Equal(t, 3.0, r.PointsEarned)
		} else {
			assert.True(t, r.Answered)
			assert.False(t, r.Correct)
			assert.Zero(t, r.PointsEarned)
		}
	}
}

func TestScoreAttemptEmptyQuestionSet(t *testing.T) {
	score := ScoreAttempt(nil, map[uint]uint{}, 80)
	assert.Zero(t, score.TotalPoints)
	assert.Zero(t, score.ScorePercentage)
	// 0 >= 80 is false; an empty set can never pass a real threshold
	assert.False(t, score.Passed)
}

func TestScoreAttemptExactThreshold(t *testing.T) {
	questions := []models.Question{
		mcq(1, 1, 11, 12, 13, 14),
		mcq(2, 1, 21, 22, 23, 24),
		mcq(3, 1, 31, 32, 33, 34),
		mcq(4, 1, 41, 42, 43, 44),
		mcq(5, 1, 51, 52, 53, 54),
	}

	// 4/5 = 80% meets a passing score of exactly 80
	score := ScoreAttempt(questions, map[uint]uint{1: 11, 2: 21, 3: 31, 4: 41, 5: 52}, 80)
	assert.InDelta(t, 80.0, score.ScorePercentage, 0.001)
	assert.True(t, score.Passed)
}
