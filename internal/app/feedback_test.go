package app_test

import (
	"testing"

	"aspirant-quiz-service/internal/app"
	"aspirant-quiz-service/internal/domain"
)

func TestScoreToFeedback(t *testing.T) {
	cases := []struct {
		score, total int
		tier         domain.Tier
		percentage   int
	}{
		{5, 5, domain.TierChampion, 100},
		{4, 5, domain.TierAchiever, 80},
		{7, 10, domain.TierAchiever, 70},
		{2, 3, domain.TierLearner, 67},
		{2, 5, domain.TierLearner, 40},
		{1, 5, domain.TierBeginner, 20},
		{0, 5, domain.TierBeginner, 0},
		{0, 0, domain.TierBeginner, 0},
	}
	for _, tc := range cases {
		fb := app.ScoreToFeedback(tc.score, tc.total)
		if fb.Tier != tc.tier || fb.Percentage != tc.percentage {
			t.Fatalf("%d/%d: expected %s at %d%%, got %s at %d%%", tc.score, tc.total, tc.tier, tc.percentage, fb.Tier, fb.Percentage)
		}
		if fb.Title == "" || fb.Description == "" {
			t.Fatalf("%d/%d: missing feedback text", tc.score, tc.total)
		}
	}
}

func TestFeedbackIsMonotonic(t *testing.T) {
	rank := map[domain.Tier]int{
		domain.TierBeginner: 0,
		domain.TierLearner:  1,
		domain.TierAchiever: 2,
		domain.TierChampion: 3,
	}
	for total := 1; total <= 20; total++ {
		prev := -1
		for score := 0; score <= total; score++ {
			r := rank[app.ScoreToFeedback(score, total).Tier]
			if r < prev {
				t.Fatalf("tier dropped at %d/%d", score, total)
			}
			prev = r
		}
		if app.ScoreToFeedback(total, total).Tier != domain.TierChampion {
			t.Fatalf("perfect score %d/%d is not Champion", total, total)
		}
	}
}

func TestPercentageRoundsHalfUp(t *testing.T) {
	cases := map[[2]int]int{
		{1, 3}: 33,
		{2, 3}: 67,
		{1, 8}: 13,
		{3, 5}: 60,
		{0, 0}: 0,
	}
	for in, want := range cases {
		if got := domain.Percentage(in[0], in[1]); got != want {
			t.Fatalf("Percentage(%d, %d) = %d, want %d", in[0], in[1], got, want)
		}
	}
}
