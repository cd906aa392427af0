package services

import "edutest/backend/models"

// QuestionResult is the scored outcome of a single question.
type QuestionResult struct {
	QuestionID       uint
	SelectedOptionID uint
	Answered         bool
	Correct          bool
	PointsEarned     float64
}

// AttemptScore aggregates an attempt's scored questions.
type AttemptScore struct {
	EarnedPoints    float64
	TotalPoints     float64
	ScorePercentage float64
	Passed          bool
	Results         []QuestionResult
}

// ScoreAttempt grades a set of questions against the final selections.
// selections maps question ID to the selected option ID; questions with
// no entry are unanswered and earn zero. Pure computation, no storage.
func ScoreAttempt(questions []models.Question, selections map[uint]uint, passingScore float64) AttemptScore {
	score := AttemptScore{Results: make([]QuestionResult, 0, len(questions))}

	for _, q := range questions {
		score.TotalPoints += q.Points

		result := QuestionResult{QuestionID: q.ID}
		if optionID, ok := selections[q.ID]; ok {
			result.Answered = true
			result.SelectedOptionID = optionID
			result.Correct = optionCorrect(q.Options, optionID)
			if result.Correct {
				result.PointsEarned = q.Points
				score.EarnedPoints += q.Points
			}
		}
		score.Results = append(score.Results, result)
	}

	if score.TotalPoints > 0 {
		score.ScorePercentage = score.EarnedPoints / score.TotalPoints * 100
	}
	score.Passed = score.ScorePercentage >= passingScore
	return score
}

func optionCorrect(options []models.AnswerOption, optionID uint) bool {
	for _, o := range options {
		if o.ID == optionID {
			return o.Correct
		}
	}
	return false
}
