package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/execoach/coach"
	"github.com/c360studio/execoach/storage"
)

// emit writes v as JSON when --json is set, otherwise calls render.
func (c *cli) emit(v any, render func()) error {
	if !c.jsonOutput {
		render()
		return nil
	}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or replace the user profile",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the active profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(app *App) error {
				p, err := app.store.LoadProfile(cmd.Context())
				if errors.Is(err, storage.ErrNotFound) {
					return errors.New("no profile found, create one with 'execoach profile set'")
				}
				if err != nil {
					return err
				}
				return c.emit(p, func() { renderProfile(c.out, p) })
			})
		},
	})

	var file string
	set := &cobra.Command{
		Use:   "set",
		Short: "Create or replace the profile from a JSON file",
		Long: `Reads a profile submission such as

  {
    "objective_description": "Run a sub-4 marathon",
    "duration_weeks": 16,
    "available_hours_per_week": 6,
    "minimum_training_frequency": 3,
    "rest_days": ["Sun"]
  }

Each submission replaces the active profile and bumps its version.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read profile: %w", err)
			}
			var in coach.ProfileInput
			if err := json.Unmarshal(data, &in); err != nil {
				return fmt.Errorf("parse profile: %w", err)
			}

			return c.withApp(cmd.Context(), func(app *App) error {
				ctx := cmd.Context()
				prev, err := app.store.LoadProfile(ctx)
				if err != nil && !errors.Is(err, storage.ErrNotFound) {
					return err
				}
				p, err := coach.NewProfile(prev, in, time.Now())
				if err != nil {
					return err
				}
				if err := app.store.SaveProfile(ctx, p); err != nil {
					return err
				}
				return c.emit(p, func() { renderProfile(c.out, p) })
			})
		},
	}
	set.Flags().StringVarP(&file, "file", "f", "", "Profile JSON file")
	_ = set.MarkFlagRequired("file")
	cmd.AddCommand(set)

	return cmd
}

func (c *cli) planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate, show, adjust and complete weekly plans",
	}

	var weekStart string
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Generate the plan for next week (or the week of --week-start)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var start time.Time
			if weekStart != "" {
				t, err := coach.ParseDate(weekStart)
				if err != nil {
					return err
				}
				start = t
			}
			return c.withApp(cmd.Context(), func(app *App) error {
				plan, err := app.coach.GeneratePlan(cmd.Context(), start)
				if err != nil {
					return err
				}
				return c.emit(plan, func() { renderPlan(c.out, plan) })
			})
		},
	}
	generate.Flags().StringVar(&weekStart, "week-start", "", "Any date in the target week (YYYY-MM-DD)")
	cmd.AddCommand(generate)

	cmd.AddCommand(&cobra.Command{
		Use:   "show [week-id]",
		Short: "Show a plan (default: the latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(app *App) error {
				var (
					plan *coach.WeeklyPlan
					err  error
				)
				if len(args) == 1 {
					if err := coach.ValidateWeekID(args[0]); err != nil {
						return err
					}
					plan, err = app.store.GetPlan(cmd.Context(), args[0])
				} else {
					plan, err = app.store.LatestPlan(cmd.Context())
				}
				if errors.Is(err, storage.ErrNotFound) {
					return errors.New("no plan found, generate one with 'execoach plan generate'")
				}
				if err != nil {
					return err
				}
				return c.emit(plan, func() { renderPlan(c.out, plan) })
			})
		},
	})

	var adjustWeek, reason string
	adjust := &cobra.Command{
		Use:   "adjust",
		Short: "Revise the remaining days of a plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(app *App) error {
				ctx := cmd.Context()
				before, err := app.store.GetPlan(ctx, adjustWeek)
				if err != nil && !errors.Is(err, storage.ErrNotFound) {
					return err
				}
				plan, err := app.coach.AdjustPlan(ctx, &coach.AdjustmentRequest{WeekID: adjustWeek, Reason: reason})
				if err != nil {
					return err
				}
				return c.emit(plan, func() {
					renderPlan(c.out, plan)
					if diff, err := coach.PlanDiff(before, plan); err == nil && diff != "" {
						fmt.Fprintln(c.out, titleStyle.Render("Changes"))
						fmt.Fprint(c.out, diff)
					}
				})
			})
		},
	}
	adjust.Flags().StringVar(&adjustWeek, "week", "", "Week id (YYYY-Www)")
	adjust.Flags().StringVar(&reason, "reason", "", "Why the plan needs to change")
	_ = adjust.MarkFlagRequired("week")
	_ = adjust.MarkFlagRequired("reason")
	cmd.AddCommand(adjust)

	var completeWeek, day, notes string
	var undo bool
	complete := &cobra.Command{
		Use:   "complete",
		Short: "Mark a day's action done (or not done with --undo)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := coach.ValidateWeekID(completeWeek); err != nil {
				return err
			}
			d, ok := coach.ParseDay(day)
			if !ok {
				return fmt.Errorf("invalid day %q: must be one of Mon..Sun", day)
			}
			done := !undo
			update := storage.DailyActionUpdate{Completed: &done}
			if cmd.Flags().Changed("notes") {
				update.ActualNotes = &notes
			}
			return c.withApp(cmd.Context(), func(app *App) error {
				plan, err := app.store.UpdateDailyAction(cmd.Context(), completeWeek, d, update)
				if err != nil {
					return err
				}
				return c.emit(plan, func() { renderPlan(c.out, plan) })
			})
		},
	}
	complete.Flags().StringVar(&completeWeek, "week", coach.WeekID(time.Now()), "Week id (YYYY-Www)")
	complete.Flags().StringVar(&day, "day", "", "Day (Mon..Sun)")
	complete.Flags().StringVar(&notes, "notes", "", "What actually happened")
	complete.Flags().BoolVar(&undo, "undo", false, "Mark the day not done")
	_ = complete.MarkFlagRequired("day")
	cmd.AddCommand(complete)

	return cmd
}

func (c *cli) checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Submit end-of-week reality checks",
	}

	var (
		rc     coach.RealityCheck
		energy string
		notes  string
	)
	submit := &cobra.Command{
		Use:   "submit",
		Short: "Submit a reality check and get a deviation report",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc.EnergyLevel = coach.EnergyLevel(energy)
			if rc.UnexpectedEvents == nil {
				rc.UnexpectedEvents = []string{}
			}
			if cmd.Flags().Changed("notes") {
				rc.Notes = &notes
			}
			return c.withApp(cmd.Context(), func(app *App) error {
				report, err := app.coach.ProcessRealityCheck(cmd.Context(), &rc)
				if err != nil {
					return err
				}
				return c.emit(report, func() { renderReport(c.out, report) })
			})
		},
	}
	submit.Flags().StringVar(&rc.WeekID, "week", coach.WeekID(time.Now()), "Week id (YYYY-Www)")
	submit.Flags().IntVar(&rc.SessionsCompleted, "completed", 0, "Sessions completed")
	submit.Flags().IntVar(&rc.SessionsPlanned, "planned", 0, "Sessions planned")
	submit.Flags().StringVar(&energy, "energy", string(coach.EnergyModerate), "Energy level (very_low, low, moderate, high, very_high)")
	submit.Flags().StringArrayVar(&rc.UnexpectedEvents, "event", nil, "Unexpected event (repeatable)")
	submit.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	cmd.AddCommand(submit)

	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List execution history, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(app *App) error {
				entries, err := app.store.ListHistory(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return c.emit(entries, func() { renderHistory(c.out, entries) })
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum entries (0 for all)")
	return cmd
}

func (c *cli) callsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "calls",
		Short: "List recent model calls from the call log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(app *App) error {
				if app.calls == nil {
					return errors.New("call log is disabled (storage.call_log is empty)")
				}
				records, err := app.calls.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return c.emit(records, func() { renderCalls(c.out, records) })
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum records")
	return cmd
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show profile, current week and store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(app *App) error {
				ctx := cmd.Context()
				stats, err := app.store.Stats(ctx)
				if err != nil {
					return err
				}
				weekID := coach.WeekID(time.Now())
				active, err := app.store.GetPlan(ctx, weekID)
				if err != nil && !errors.Is(err, storage.ErrNotFound) {
					return err
				}
				out := struct {
					CurrentWeekID string            `json:"current_week_id"`
					ActivePlan    *coach.WeeklyPlan `json:"active_plan"`
					Statistics    coach.Stats       `json:"statistics"`
				}{weekID, active, stats}
				return c.emit(out, func() { renderStatus(c.out, stats, weekID, active) })
			})
		},
	}
}

func (c *cli) resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the profile, all plans and all history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete all data without --yes")
			}
			return c.withApp(cmd.Context(), func(app *App) error {
				if err := app.store.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(c.out, "All data cleared.")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}
