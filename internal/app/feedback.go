package app

import (
	"sort"

	"aspirant-quiz-service/internal/domain"
)

type feedbackTier struct {
	minPercentage int
	tier          domain.Tier
	title         string
	description   string
}

// feedbackTiers is evaluated in descending minPercentage order; first match wins.
var feedbackTiers = sortedTiers([]feedbackTier{
	{minPercentage: 100, tier: domain.TierChampion, title: "Perfect Score!", description: "Incredible! You're an expert on this topic."},
	{minPercentage: 70, tier: domain.TierAchiever, title: "Excellent Work!", description: "You have a strong understanding of the material."},
	{minPercentage: 40, tier: domain.TierLearner, title: "Good Effort!", description: "You're on the right track. A little review could help."},
	{minPercentage: 0, tier: domain.TierBeginner, title: "Keep Studying!", description: "Don't be discouraged. Learning is a journey."},
})

func sortedTiers(tiers []feedbackTier) []feedbackTier {
	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].minPercentage > tiers[j].minPercentage
	})
	return tiers
}

// ScoreToFeedback maps a final score to its tier. Thresholds compare the exact
// ratio score/total, so rounding of the displayed percentage never moves a tier.
func ScoreToFeedback(score, total int) domain.Feedback {
	match := feedbackTiers[len(feedbackTiers)-1]
	if total > 0 {
		for _, t := range feedbackTiers {
			if score*100 >= t.minPercentage*total {
				match = t
				break
			}
		}
	}
	return domain.Feedback{
		Tier:        match.tier,
		Title:       match.title,
		Description: match.description,
		Percentage:  domain.Percentage(score, total),
	}
}

// Result actions offered on the completion screen.
const (
	ActionRetry    = "retry"
	ActionNewTopic = "new_topic"
)

// ResultSummary is the completion screen.
type ResultSummary struct {
	Result   domain.SessionResult `json:"result"`
	Feedback domain.Feedback      `json:"feedback"`
	Actions  []string             `json:"actions"`
}

// Summarize renders the completion screen for a result.
func Summarize(result domain.SessionResult) ResultSummary {
	return ResultSummary{
		Result:   result,
		Feedback: ScoreToFeedback(result.Score, result.TotalQuestions),
		Actions:  []string{ActionRetry, ActionNewTopic},
	}
}
