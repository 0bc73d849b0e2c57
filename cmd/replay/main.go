// Package main replays a recorded trade-outcome stream through fresh
// sizing state and prints the resulting multipliers. The fold is
// deterministic: the same stream always reproduces the same state.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"position-sizing-engine/internal/domain"
	"position-sizing-engine/internal/engine"
	"position-sizing-engine/internal/sizing"
)

// outcomeLine is one JSONL record of the recorded stream.
type outcomeLine struct {
	Profit    float64 `json:"profit"`
	IsWin     bool    `json:"is_win"`
	Timestamp int64   `json:"timestamp"`
}

// ReplayResult is the final state after folding the stream.
type ReplayResult struct {
	UserID         string                    `json:"user_id"`
	Outcomes       int                       `json:"outcomes"`
	Wins           int                       `json:"wins"`
	Losses         int                       `json:"losses"`
	TotalProfit    float64                   `json:"total_profit"`
	Streak         domain.StreakState        `json:"streak"`
	Compound       domain.CompoundState      `json:"compound"`
	Recommendation domain.SizeRecommendation `json:"recommendation"`
}

func main() {
	// Parse flags
	inputPath := flag.String("input", "", "JSONL outcome stream to replay (default stdin)")
	userID := flag.String("user-id", "default", "User ID for the replayed state")
	configPath := flag.String("config", "", "Configuration JSON file (default: built-in defaults)")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	// Load configuration
	cfg := domain.DefaultConfiguration(*userID)
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			logger.Fatalf("read config: %v", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			logger.Fatalf("parse config: %v", err)
		}
		cfg.UserID = *userID
		if err := cfg.Validate(); err != nil {
			logger.Fatalf("invalid config: %v", err)
		}
	}

	// Open the stream
	var in io.Reader = os.Stdin
	if *inputPath != "" {
		f, err := os.Open(*inputPath)
		if err != nil {
			logger.Fatalf("open input: %v", err)
		}
		defer f.Close()
		in = f
	}

	outcomes, wins, losses, totalProfit, err := readOutcomes(in, *userID)
	if err != nil {
		logger.Fatalf("read outcomes: %v", err)
	}
	logger.Printf("Replaying %d outcomes for user %s", len(outcomes), *userID)

	// Fold the stream over fresh state
	streakState, compoundState := engine.Replay(cfg, outcomes)

	base := cfg.BasePositionSize
	if cfg.Compound.Enabled {
		base = compoundState.CurrentSize
	}
	rec := sizing.Combine(base, streakState, domain.RegimeSignal{Label: domain.RegimeChop}, cfg)

	result := ReplayResult{
		UserID:         *userID,
		Outcomes:       len(outcomes),
		Wins:           wins,
		Losses:         losses,
		TotalProfit:    totalProfit,
		Streak:         streakState,
		Compound:       compoundState,
		Recommendation: rec,
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return
	}

	fmt.Printf("\n=== Replay Summary ===\n")
	fmt.Printf("User ID:            %s\n", result.UserID)
	fmt.Printf("Outcomes:           %d (%d wins, %d losses)\n", result.Outcomes, result.Wins, result.Losses)
	fmt.Printf("Total Profit:       %.2f\n", result.TotalProfit)
	fmt.Printf("Streak Multiplier:  %.2f (wins=%d losses=%d)\n",
		result.Streak.StreakMultiplier, result.Streak.ConsecutiveWins, result.Streak.ConsecutiveLosses)
	fmt.Printf("Compound Size:      %.2f (multiplier %.2f)\n",
		result.Compound.CurrentSize, result.Compound.CurrentMultiplier)
	fmt.Printf("Recommended Size:   %.2f\n", result.Recommendation.FinalSize)
	if result.Compound.UpdatedAt > 0 {
		fmt.Printf("Last Compound At:   %s\n", time.UnixMilli(result.Compound.UpdatedAt).Format(time.RFC3339))
	}
}

// readOutcomes parses the JSONL stream. Blank lines are skipped; a
// malformed line aborts the replay since a partial fold is misleading.
func readOutcomes(in io.Reader, userID string) ([]domain.TradeOutcome, int, int, float64, error) {
	var outcomes []domain.TradeOutcome
	var wins, losses int
	var totalProfit float64

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec outcomeLine
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, 0, 0, 0, fmt.Errorf("line %d: %w", lineNo, err)
		}

		outcomes = append(outcomes, domain.TradeOutcome{
			UserID:    userID,
			Profit:    rec.Profit,
			IsWin:     rec.IsWin,
			Timestamp: rec.Timestamp,
		})
		if rec.IsWin {
			wins++
		} else {
			losses++
		}
		totalProfit += rec.Profit
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, 0, 0, err
	}

	return outcomes, wins, losses, totalProfit, nil
}
