// Package main is keycheck, a CLI that detects which provider an API key
// belongs to and prints the account and model inventory, without running the
// server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"keymate/internal/core"
	"keymate/internal/detect"
	"keymate/internal/modelid"
	"keymate/internal/normalize"
	"keymate/internal/providers"

	// Import provider packages to trigger their init() registration
	_ "keymate/internal/providers/claude"
	_ "keymate/internal/providers/deepseek"
	_ "keymate/internal/providers/gemini"
	_ "keymate/internal/providers/grok"
	_ "keymate/internal/providers/groq"
	_ "keymate/internal/providers/openai"
)

func main() {
	jsonOut := flag.Bool("json", false, "Emit the full result as JSON")
	timeout := flag.Duration("timeout", 10*time.Second, "Per-probe timeout")
	concurrency := flag.Int("concurrency", 3, "Probe fan-out width")
	detailsFlag := flag.Bool("details", true, "Fetch account status and model listing for the detected provider")
	flag.Parse()

	credential, err := readCredential(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	registry, err := providers.NewRegistry(providers.Options{Timeout: *timeout})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	detector := detect.New(registry, detect.Options{Concurrency: *concurrency})

	ctx := context.Background()
	detection := detector.DetectProvider(ctx, credential)

	var report *core.DetailReport
	if detection.Valid && *detailsFlag {
		report, err = detector.GetDetailedInfo(ctx, detection.Provider, credential)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}

	if *jsonOut {
		printJSON(credential, detection, report)
	} else {
		printText(credential, detection, report)
	}

	if !detection.Valid {
		os.Exit(1)
	}
}

// readCredential resolves the key from the positional argument, the
// KEYMATE_API_KEY environment variable, or a no-echo terminal prompt.
func readCredential(arg string) (string, error) {
	if arg != "" {
		return arg, nil
	}
	if env := os.Getenv("KEYMATE_API_KEY"); env != "" {
		return env, nil
	}
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("no API key given: pass it as an argument or set KEYMATE_API_KEY")
	}

	fmt.Fprint(os.Stderr, "API key: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func printJSON(credential string, detection core.Detection, report *core.DetailReport) {
	out := map[string]interface{}{
		"key":       core.MaskCredential(credential),
		"detection": detection,
	}
	if report != nil {
		out["report"] = report
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func printText(credential string, detection core.Detection, report *core.DetailReport) {
	fmt.Printf("Key:      %s\n", core.MaskCredential(credential))
	fmt.Printf("Result:   %s\n", detection.Message)
	if detection.Provider != "" {
		fmt.Printf("Provider: %s\n", detection.Provider)
	}
	if detection.ClosestFailure != nil {
		fmt.Printf("Closest:  %s (%s)\n", detection.ClosestFailure.Provider, detection.ClosestFailure.Class)
	}
	if report == nil {
		return
	}

	if report.Error != "" {
		fmt.Printf("Details:  %s\n", report.Error)
		return
	}
	if report.AccountStatus != nil {
		fmt.Printf("Account:  %s\n", report.AccountStatus.Tier)
		flags := make([]string, 0, len(report.AccountStatus.Flags))
		for flag, set := range report.AccountStatus.Flags {
			if set {
				flags = append(flags, flag)
			}
		}
		sort.Strings(flags)
		if len(flags) > 0 {
			fmt.Printf("Flags:    %s\n", strings.Join(flags, ", "))
		}
	}
	if report.ModelDetails != nil {
		fmt.Printf("Models:   %d\n\n", report.ModelDetails.TotalModels)
		printModelTable(detection.Provider, report.ModelDetails)
	}
}

func printModelTable(provider core.ProviderID, details *core.ModelDetails) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tTYPE\tFAMILY\tSTATUS")
	for _, rec := range normalize.ModelsForTable(provider, details) {
		parts := modelid.Parse(rec.ModelID)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.ModelID, rec.Type, parts.Family, rec.Status)
	}
	_ = w.Flush()
}
