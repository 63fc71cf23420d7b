// Package review asks an LLM for a written critique of a recorded backtest.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/journal"
	"github.com/newthinker/backtrack/internal/llm"
	"github.com/newthinker/backtrack/internal/models"
)

const maxTokens = 1500

const systemPrompt = `You are a skeptical quantitative trading reviewer.
You receive the recorded metrics of one strategy backtest and critique it.
Look for overfitting, too few trades, unrealistic profit factor, drawdown
relative to return, and poor risk/reward. Be concrete and brief.
Respond with a JSON object:
{"summary": string, "strengths": [string], "weaknesses": [string],
 "suggestions": [string], "verdict": "promising" | "needs_work" | "reject"}`

// Verdicts a review may return.
const (
	VerdictPromising = "promising"
	VerdictNeedsWork = "needs_work"
	VerdictReject    = "reject"
)

// Review is the structured critique of one backtest.
type Review struct {
	BacktestID  string    `json:"backtest_id"`
	Provider    string    `json:"provider"`
	Summary     string    `json:"summary"`
	Strengths   []string  `json:"strengths"`
	Weaknesses  []string  `json:"weaknesses"`
	Suggestions []string  `json:"suggestions"`
	Verdict     string    `json:"verdict,omitempty"`
	Usage       llm.Usage `json:"usage"`
	CreatedAt   time.Time `json:"created_at"`
}

// Reviewer builds prompts from stored backtests and parses the replies.
type Reviewer struct {
	llm    llm.Provider
	logger *zap.Logger
}

// NewReviewer creates a reviewer. provider must not be nil.
func NewReviewer(provider llm.Provider, logger *zap.Logger) *Reviewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reviewer{llm: provider, logger: logger}
}

// Provider returns the name of the underlying LLM provider.
func (r *Reviewer) Provider() string {
	return r.llm.Name()
}

// Review critiques b. A reply that is not valid JSON is kept as the summary.
func (r *Reviewer) Review(ctx context.Context, b *models.Backtest) (*Review, error) {
	if b == nil {
		return nil, core.Invalid("backtest required")
	}

	resp, err := r.llm.Chat(ctx, llm.ChatRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: BuildPrompt(b)}},
		MaxTokens:    maxTokens,
		Temperature:  0.3,
		JSONMode:     true,
	})
	if err != nil {
		return nil, core.WrapError(core.ErrLLMFailed, err)
	}

	out := &Review{
		BacktestID: b.ID,
		Provider:   r.llm.Name(),
		Usage:      resp.Usage,
		CreatedAt:  time.Now().UTC(),
	}
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), out); err != nil {
		r.logger.Debug("review reply is not JSON, keeping raw text",
			zap.String("backtest_id", b.ID), zap.Error(err))
		out.Summary = strings.TrimSpace(resp.Content)
	}
	out.Verdict = normalizeVerdict(out.Verdict)
	return out, nil
}

// BuildPrompt renders the backtest metrics as a markdown brief.
func BuildPrompt(b *models.Backtest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Backtest: %s\n\n", b.Name)
	fmt.Fprintf(&sb, "- Symbol: %s\n", orDash(b.Symbol))
	fmt.Fprintf(&sb, "- Timeframe: %s\n", orDash(b.Timeframe))
	fmt.Fprintf(&sb, "- Period: %s to %s\n", b.StartDate.Format("2006-01-02"), b.EndDate.Format("2006-01-02"))

	if sys := b.TradingSystem; sys != nil {
		sb.WriteString("\n## Trading system\n")
		fmt.Fprintf(&sb, "- Name: %s\n", sys.Name)
		if sys.StrategyType != "" {
			fmt.Fprintf(&sb, "- Strategy type: %s\n", sys.StrategyType)
		}
		if sys.Market != "" {
			fmt.Fprintf(&sb, "- Market: %s\n", sys.Market)
		}
		writeRules(&sb, "Entry rules", journal.Rules(sys.EntryRules))
		writeRules(&sb, "Exit rules", journal.Rules(sys.ExitRules))
		writeRules(&sb, "Risk rules", journal.Rules(sys.RiskRules))
	}

	sb.WriteString("\n## Metrics\n")
	metric(&sb, "Initial capital", b.InitialCapital, "")
	metric(&sb, "Final capital", b.FinalCapital, "")
	metric(&sb, "Net profit", b.NetProfit, "")
	metric(&sb, "Return", b.ReturnPct(), "%")
	intMetric(&sb, "Total trades", b.TotalTrades)
	intMetric(&sb, "Winning trades", b.WinningTrades)
	intMetric(&sb, "Losing trades", b.LosingTrades)
	metric(&sb, "Win rate", b.WinRate, "%")
	metric(&sb, "Profit factor", b.ProfitFactor, "")
	metric(&sb, "Max drawdown", b.MaxDrawdown, "%")
	metric(&sb, "Sharpe ratio", b.SharpeRatio, "")
	metric(&sb, "Average win", b.AvgWin, "")
	metric(&sb, "Average loss", b.AvgLoss, "")
	if b.AvgWin.Valid && b.AvgLoss.Valid && b.AvgLoss.Decimal.IsPositive() {
		rr := b.AvgWin.Decimal.DivRound(b.AvgLoss.Decimal, 4)
		metric(&sb, "Risk/reward", decimal.NewNullDecimal(rr), "")
	}
	intMetric(&sb, "Max consecutive wins", b.MaxConsecutiveWins)
	intMetric(&sb, "Max consecutive losses", b.MaxConsecutiveLosses)

	if notes := strings.TrimSpace(b.Notes); notes != "" {
		sb.WriteString("\n## Trader notes\n")
		sb.WriteString(notes)
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeRules(sb *strings.Builder, label string, rules []string) {
	if len(rules) == 0 {
		return
	}
	fmt.Fprintf(sb, "- %s:\n", label)
	for _, r := range rules {
		fmt.Fprintf(sb, "  - %s\n", r)
	}
}

func metric(sb *strings.Builder, label string, v decimal.NullDecimal, unit string) {
	if !v.Valid {
		fmt.Fprintf(sb, "- %s: n/a\n", label)
		return
	}
	fmt.Fprintf(sb, "- %s: %s%s\n", label, v.Decimal.String(), unit)
}

func intMetric(sb *strings.Builder, label string, v *int) {
	if v == nil {
		fmt.Fprintf(sb, "- %s: n/a\n", label)
		return
	}
	fmt.Fprintf(sb, "- %s: %d\n", label, *v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// extractJSON strips a markdown code fence some models wrap JSON in.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func normalizeVerdict(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.ReplaceAll(v, " ", "_")
	switch v {
	case VerdictPromising, VerdictNeedsWork, VerdictReject:
		return v
	default:
		return ""
	}
}
