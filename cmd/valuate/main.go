// Command valuate computes a valuation range offline from a revenue figure and
// a multiple set, optionally applying chat commands without calling a model.
//
//	valuate -revenue 1.2Cr -mid 8
//	valuate -revenue 10L -mrr -mid 6 -say "use high multiple"
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"startup_valuation/pkg/core/amount"
	"startup_valuation/pkg/core/intent"
	"startup_valuation/pkg/core/valuation"
	"startup_valuation/pkg/models"
)

func main() {
	mode := flag.String("mode", "calculate", "Mode: calculate or interpret")
	revenue := flag.String("revenue", "", "ARR or MRR, e.g. 1.2Cr, 50L, 250k")
	isMRR := flag.Bool("mrr", false, "Treat -revenue as monthly")
	mid := flag.Float64("mid", 0, "Mid revenue multiple")
	low := flag.Float64("low", 0, "Low multiple (default 0.8 × mid)")
	high := flag.Float64("high", 0, "High multiple (default 1.2 × mid)")
	say := flag.String("say", "", "Chat message to apply (interpret mode)")
	asJSON := flag.Bool("json", false, "Print JSON instead of text")
	flag.Parse()

	if *revenue == "" || *mid <= 0 {
		fmt.Println("Error: -revenue and a positive -mid are required")
		os.Exit(1)
	}

	rev, err := amount.Parse(*revenue)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if *isMRR {
		rev *= 12
	}

	snap := models.ValuationSnapshot{
		Revenue:     rev,
		Currency:    "INR",
		MultipleSet: models.MultipleSet{Mid: *mid},
	}
	if *low > 0 {
		snap.MultipleSet.Low = models.Float(*low)
	}
	if *high > 0 {
		snap.MultipleSet.High = models.Float(*high)
	}

	switch *mode {
	case "calculate":
	case "interpret":
		snap = runInterpret(snap, *say)
	default:
		fmt.Printf("Unknown mode: %s\n", *mode)
		os.Exit(1)
	}

	printRange(snap, valuation.ComputeSnapshot(snap), *asJSON)
}

// interpret applies a chat message the way the chat route does, sanitized first.
func interpret(snap models.ValuationSnapshot, msg string) (intent.Outcome, error) {
	return intent.Interpret(snap, intent.Sanitize(msg))
}

func runInterpret(snap models.ValuationSnapshot, msg string) models.ValuationSnapshot {
	out, err := interpret(snap, msg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if out.NeedsFreshMarketData {
		fmt.Println("Note: fresh market data needs the API server; keeping current multiples")
	}
	for _, k := range out.Applied {
		fmt.Printf("Applied: %s\n", k)
	}
	return out.Snapshot
}

func printRange(snap models.ValuationSnapshot, r models.ValuationRange, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]interface{}{"snapshot": snap, "valuation": r})
		return
	}
	fmt.Printf("Revenue (annual): %s\n", amount.FormatINR(snap.Revenue))
	fmt.Printf("Multiples:        %.1f× / %.1f× / %.1f×\n", snap.MultipleSet.LowOrDefault(), snap.MultipleSet.Mid, snap.MultipleSet.HighOrDefault())
	fmt.Printf("Valuation:        %s - %s (mid %s)\n", amount.FormatINR(r.Low), amount.FormatINR(r.High), amount.FormatINR(r.Mid))
}
