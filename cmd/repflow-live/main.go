package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/claude/repflow/internal/advisor"
	"github.com/claude/repflow/internal/client"
	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/recovery"
	"github.com/claude/repflow/internal/workout"
	"github.com/google/uuid"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	templatePath := flag.String("template", "", "path to a workout template YAML file")
	serverURL := flag.String("server", "", "RepFlow server URL (e.g. https://repflow.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("REPFLOW_AUTH_API_KEY"), "API key for saving sessions")
	noSuggest := flag.Bool("no-suggest", false, "skip fetching overload suggestions")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("repflow-live", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	*serverURL = strings.TrimRight(*serverURL, "/")
	var api *client.Client
	if *serverURL != "" {
		api = client.New(*serverURL, *apiKey)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine home directory: %v\n", err)
		os.Exit(1)
	}
	state, err := recovery.OpenStateDB(filepath.Join(homeDir, ".repflow-live"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening state database: %v\n", err)
		os.Exit(1)
	}
	defer state.Close()

	in := bufio.NewScanner(os.Stdin)

	sess := resumeOrStart(in, state, api, *templatePath, *noSuggest, log)
	if sess == nil {
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(ctx)

	// Announce phase changes as they happen. Notifications arrive from
	// both the command loop and the ticker goroutine.
	var mu sync.Mutex
	var lastKind workout.PhaseKind
	unsubscribe := sess.Subscribe(func(snap workout.Snapshot) {
		mu.Lock()
		changed := snap.Phase.Kind != lastKind
		lastKind = snap.Phase.Kind
		mu.Unlock()
		if changed {
			fmt.Printf("\n>> %s\n", describePhase(snap, sess.Template()))
		}
	})
	defer unsubscribe()

	runLoop(in, sess, state)

	result, ok := sess.Result()
	if !ok {
		return
	}

	sum := workout.Summarize(result.Data)
	fmt.Printf("\nSession complete: %s in %s, %s\n",
		result.TemplateName, result.Duration.Round(time.Second), workout.VolumeLabel(sum))

	rec := result.Record()
	if api != nil {
		if err := api.SendSession(rec); err != nil {
			fmt.Fprintf(os.Stderr, "Save failed: %v\nSnapshot kept; re-run to retry.\n", err)
			return
		}
		fmt.Println("Saved to server.")
	}
	if err := state.Delete(rec.ID); err != nil {
		log.Warn("deleting snapshot", "error", err)
	}
}

// resumeOrStart offers to resume a crashed session before falling back
// to starting the template fresh.
func resumeOrStart(in *bufio.Scanner, state *recovery.StateDB, api *client.Client, templatePath string, noSuggest bool, log *slog.Logger) *workout.Session {
	pending, err := state.LoadAll()
	if err != nil {
		log.Warn("loading snapshots", "error", err)
	}

	var owner workout.Owner
	for _, p := range pending {
		fmt.Printf("Found an unfinished %q session from %s. Resume? [y/N] ", p.TemplateName, p.SavedAt.Local().Format("Mon 15:04"))
		if !in.Scan() || !strings.EqualFold(strings.TrimSpace(in.Text()), "y") {
			continue
		}
		sess, err := workout.RestoreSession(p.State)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: snapshot unusable: %v\n", err)
			continue
		}
		if err := owner.Adopt(sess); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return nil
		}
		fmt.Println("Resumed (paused). Type 'pause' to continue the clock, 'help' for commands.")
		return sess
	}

	if templatePath == "" {
		fmt.Fprintf(os.Stderr, "Usage: repflow-live -template <file.yaml> [-server <URL>] [-api-key <key>]\n\n")
		flag.PrintDefaults()
		return nil
	}

	t, err := models.LoadTemplateFile(templatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading template: %v\n", err)
		return nil
	}

	if api != nil && !noSuggest && t.ID != uuid.Nil {
		suggestions, err := api.FetchSuggestions(t.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: suggestions unavailable: %v\n", err)
		} else {
			printSuggestions(suggestions)
			fmt.Print("Apply suggested weights? [y/N] ")
			if in.Scan() && strings.EqualFold(strings.TrimSpace(in.Text()), "y") {
				*t = advisor.ApplyToTemplate(*t, suggestions)
			}
		}
	}

	sess, err := owner.Begin(*t)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil
	}
	if err := sess.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil
	}

	fmt.Printf("Started %q (%d exercises, ~%s). Type 'help' for commands.\n",
		t.Name, len(t.Exercises), workout.EstimateDuration(*t).Round(time.Minute))
	return sess
}

func runLoop(in *bufio.Scanner, sess *workout.Session, state *recovery.StateDB) {
	for !sess.Completed() {
		fmt.Print("> ")
		if !in.Scan() {
			// stdin closed; keep the snapshot for next run
			return
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		if cmd == "quit" {
			fmt.Println("Leaving session recoverable; run again to resume.")
			saveSnapshot(sess, state)
			return
		}

		if err := dispatch(cmd, args, sess); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		saveSnapshot(sess, state)
	}
}

func dispatch(cmd string, args []string, sess *workout.Session) error {
	switch cmd {
	case "done":
		return sess.CompleteSet(parseMeasurement(args))
	case "failset":
		return sess.EnterFailureInput()
	case "fail":
		if len(args) != 1 {
			return fmt.Errorf("usage: fail <reps>")
		}
		reps, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("reps must be a number")
		}
		return sess.CompleteFailureSet(reps)
	case "skip":
		return sess.SkipRest()
	case "begin":
		return sess.BeginSet()
	case "pause":
		return sess.TogglePause()
	case "skipex":
		idx, err := exerciseIndex(args)
		if err != nil {
			return err
		}
		return sess.SkipExercise(idx)
	case "return":
		idx, err := exerciseIndex(args)
		if err != nil {
			return err
		}
		return sess.ReturnToSkipped(idx)
	case "w":
		delta, err := parseDelta(args)
		if err != nil {
			return err
		}
		return sess.AdjustWeight(delta)
	case "r":
		delta, err := parseDelta(args)
		if err != nil {
			return err
		}
		return sess.AdjustReps(int(delta))
	case "note":
		if len(args) < 2 {
			return fmt.Errorf("usage: note <exercise#> <text>")
		}
		idx, err := exerciseIndex(args[:1])
		if err != nil {
			return err
		}
		return sess.SetExerciseNotes(idx, strings.Join(args[1:], " "))
	case "status":
		printStatus(sess)
		return nil
	case "finish":
		if _, err := sess.Finish(); err != nil {
			return err
		}
		return nil
	case "end":
		sess.End()
		return nil
	case "help":
		printHelp()
		return nil
	default:
		return fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
}

// parseMeasurement reads optional key=value overrides, e.g.
// "done reps=6 weight=62.5".
func parseMeasurement(args []string) workout.SetMeasurement {
	var m workout.SetMeasurement
	for _, a := range args {
		key, val, ok := strings.Cut(a, "=")
		if !ok {
			continue
		}
		switch key {
		case "reps":
			if n, err := strconv.Atoi(val); err == nil {
				m.Reps = &n
			}
		case "weight":
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				m.Weight = &f
			}
		case "distance":
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				m.Distance = &f
			}
		case "time":
			if n, err := strconv.Atoi(val); err == nil {
				m.TimeSec = &n
			}
		}
	}
	return m
}

func exerciseIndex(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("exercise number required")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("exercise number must be 1 or greater")
	}
	return n - 1, nil
}

func parseDelta(args []string) (float64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("delta required, e.g. +2.5 or -5")
	}
	f, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, fmt.Errorf("delta must be a number")
	}
	return f, nil
}

func saveSnapshot(sess *workout.Session, state *recovery.StateDB) {
	if sess.Completed() {
		return
	}
	data, err := sess.MarshalState()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: snapshot failed: %v\n", err)
		return
	}
	if err := state.SaveSnapshot(sess.ID(), sess.Template().Name, data); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: snapshot failed: %v\n", err)
	}
}

func printStatus(sess *workout.Session) {
	p := sess.Phase()
	t := sess.Template()
	fmt.Printf("  phase: %s  elapsed: %s\n", p.Kind, sess.Elapsed().Round(time.Second))
	if p.IsRest() {
		fmt.Printf("  rest remaining: %s\n", sess.RestRemaining().Round(time.Second))
	}
	inner := p.Unwrap()
	if inner.Exercise < len(t.Exercises) {
		def := t.Exercises[inner.Exercise]
		weight, reps := sess.Working()
		fmt.Printf("  exercise %d/%d: %s  set %d/%d", inner.Exercise+1, len(t.Exercises), def.Name, inner.Set+1, def.Sets)
		if def.Type == models.ExerciseStrength {
			fmt.Printf("  %g kg x %d", weight, reps)
		}
		fmt.Println()
	}
}

func describePhase(snap workout.Snapshot, t models.Template) string {
	name := ""
	if snap.Exercise < len(t.Exercises) {
		name = t.Exercises[snap.Exercise].Name
	}
	switch snap.Phase.Kind {
	case workout.PhaseActive:
		return fmt.Sprintf("%s — set %d", name, snap.Set+1)
	case workout.PhaseResting:
		return fmt.Sprintf("rest %s", snap.RestRemaining.Round(time.Second))
	case workout.PhaseRestingForFailure:
		return fmt.Sprintf("rest %s, then %s to failure", snap.RestRemaining.Round(time.Second), name)
	case workout.PhaseRestingBetween:
		return fmt.Sprintf("rest %s, next up %s", snap.RestRemaining.Round(time.Second), name)
	case workout.PhaseFailureSet:
		return fmt.Sprintf("%s — go to failure, then 'failset'", name)
	case workout.PhaseFailureInput:
		return "enter reps with 'fail <n>'"
	case workout.PhaseReady:
		return fmt.Sprintf("%s — adjust with 'w'/'r', then 'begin'", name)
	case workout.PhaseSkippedPrompt:
		return "skipped exercises remain: 'return <n>' or 'finish'"
	case workout.PhasePaused:
		return "paused"
	case workout.PhaseComplete:
		return "workout complete"
	default:
		return string(snap.Phase.Kind)
	}
}

func printSuggestions(suggestions []advisor.Suggestion) {
	fmt.Println("\n=== Overload Suggestions ===")
	for _, s := range suggestions {
		marker := " "
		if s.ShouldIncrease {
			marker = "+"
		} else if s.ShouldAddTestSet {
			marker = "?"
		}
		fmt.Printf(" %s %-24s %g -> %g  (%s)\n", marker, s.Exercise, s.CurrentWeight, s.SuggestedWeight, s.Reason)
	}
	fmt.Println()
}

func printHelp() {
	fmt.Print(`Commands:
  done [reps=N] [weight=F] [distance=F] [time=S]   log the current set
  failset            start the to-failure set after its rest
  fail <reps>        log the to-failure set result
  skip               skip the current rest
  begin              start the set from the ready screen
  pause              toggle pause
  skipex <n>         skip exercise n
  return <n>         return to skipped exercise n (from the end-of-workout prompt)
  w <delta>          adjust working weight (e.g. w +2.5)
  r <delta>          adjust working reps (e.g. r -1)
  note <n> <text>    attach a note to exercise n
  status             show the current phase and timers
  finish             finish from the skipped-exercises prompt
  end                end the workout early
  quit               exit, keeping the session resumable
`)
}
