package goal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/newthinker/backtrack/internal/models"
)

func TestEvaluate(t *testing.T) {
	today := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)
	target := dec("50")
	below := target.Sub(dec("1"))

	tests := []struct {
		name    string
		current string
		end     time.Time
		want    models.GoalStatus
	}{
		{"target reached before deadline", "50", tomorrow, models.GoalAchieved},
		{"target reached after deadline", "50", yesterday, models.GoalAchieved},
		{"target exceeded", "75.5", yesterday, models.GoalAchieved},
		{"below target past deadline", below.String(), yesterday, models.GoalFailed},
		{"below target before deadline", below.String(), tomorrow, models.GoalInProgress},
		{"deadline is now", "0", today, models.GoalInProgress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(dec(tt.current), target, tt.end, today)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_MaxDrawdownKeepsGreaterOrEqual(t *testing.T) {
	// A 20% drawdown against a 10% target counts as achieved.
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, models.GoalAchieved, Evaluate(dec("20"), dec("10"), now.AddDate(0, 1, 0), now))
	assert.Equal(t, models.GoalInProgress, Evaluate(dec("5"), dec("10"), now.AddDate(0, 1, 0), now))
}

func TestEvaluate_ExactDecimalComparison(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// 0.1 + 0.2 is exactly 0.3 in decimal arithmetic.
	sum := dec("0.1").Add(dec("0.2"))
	assert.Equal(t, models.GoalAchieved, Evaluate(sum, dec("0.3"), now, now))
}
