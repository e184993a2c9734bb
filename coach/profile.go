package coach

import (
	"fmt"
	"strings"
	"time"
)

// ProfileInput is a profile submission.
type ProfileInput struct {
	ObjectiveDescription     string   `json:"objective_description"`
	DurationWeeks            int      `json:"duration_weeks"`
	AvailableHoursPerWeek    float64  `json:"available_hours_per_week"`
	FixedCommitments         []string `json:"fixed_commitments"`
	PhysicalConstraints      []string `json:"physical_constraints"`
	MinimumTrainingFrequency int      `json:"minimum_training_frequency"`
	RestDays                 []string `json:"rest_days"`
	OtherRules               []string `json:"other_rules"`
}

// Validate checks required fields and numeric ranges.
func (in *ProfileInput) Validate() error {
	if strings.TrimSpace(in.ObjectiveDescription) == "" {
		return fmt.Errorf("%w: objective_description is required", ErrInvalid)
	}
	if in.DurationWeeks < 1 {
		return fmt.Errorf("%w: duration_weeks must be >= 1", ErrInvalid)
	}
	if in.AvailableHoursPerWeek <= 0 {
		return fmt.Errorf("%w: available_hours_per_week must be > 0", ErrInvalid)
	}
	if in.MinimumTrainingFrequency < 1 {
		return fmt.Errorf("%w: minimum_training_frequency must be >= 1", ErrInvalid)
	}
	for _, d := range in.RestDays {
		if _, ok := ParseDay(d); !ok {
			return fmt.Errorf("%w: rest day %q must be one of Mon..Sun", ErrInvalid, d)
		}
	}
	return nil
}

// NewProfile builds the next profile version from a submission. prev is the
// currently stored profile, or nil for the first submission.
func NewProfile(prev *Profile, in ProfileInput, now time.Time) (*Profile, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	version := 1
	if prev != nil {
		version = prev.Objective.Version + 1
	}

	restDays := make([]string, 0, len(in.RestDays))
	for _, d := range in.RestDays {
		day, _ := ParseDay(d)
		restDays = append(restDays, string(day))
	}

	return &Profile{
		Objective: Objective{
			ID:            fmt.Sprintf("obj_%03d", version),
			Description:   strings.TrimSpace(in.ObjectiveDescription),
			DurationWeeks: in.DurationWeeks,
			CreatedAt:     now,
			Version:       version,
		},
		HardConstraints: HardConstraints{
			AvailableHoursPerWeek: in.AvailableHoursPerWeek,
			FixedCommitments:      nonNil(in.FixedCommitments),
			PhysicalConstraints:   nonNil(in.PhysicalConstraints),
		},
		NonNegotiables: NonNegotiables{
			MinimumTrainingFrequency: in.MinimumTrainingFrequency,
			RestDays:                 restDays,
			OtherRules:               nonNil(in.OtherRules),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
