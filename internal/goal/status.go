package goal

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/newthinker/backtrack/internal/models"
)

// Evaluate derives a goal's status. Reaching the target wins over a passed
// deadline. The comparison is current >= target for every goal type,
// max_drawdown included.
func Evaluate(current, target decimal.Decimal, endDate, now time.Time) models.GoalStatus {
	switch {
	case current.GreaterThanOrEqual(target):
		return models.GoalAchieved
	case now.After(endDate):
		return models.GoalFailed
	default:
		return models.GoalInProgress
	}
}
