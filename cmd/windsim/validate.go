package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/couchcryptid/storm-windfield/internal/domain"
	"github.com/couchcryptid/storm-windfield/internal/windfield"
	"github.com/spf13/cobra"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

var errValidationFailed = errors.New("validation failed")

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.json | ->",
		Short: "Check that a scenario configures cleanly without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.logger(io.Discard)
			raw, err := readScenario(cmd, args[0])
			if err != nil {
				return err
			}
			builder, err := opts.builder(logger)
			if err != nil {
				return err
			}
			phases := validateScenario(builder, raw)
			if !report(cmd.OutOrStdout(), phases) {
				return errValidationFailed
			}
			return nil
		},
	}
}

// validateScenario runs every configuration step for every realization in
// strict mode and records what fails. Later phases are skipped once a phase
// they depend on fails.
func validateScenario(b *windfield.Builder, raw domain.RawScenario) []*phase {
	parse := &phase{name: "Parse scenario document"}
	sc, err := domain.ParseScenario(raw)
	if err != nil {
		parse.errorf("%v", err)
		return []*phase{parse}
	}
	parse.notef("scenario %s", sc.ID)

	physics := &phase{name: "Physics constants"}
	if err := b.Physics.Validate(); err != nil {
		physics.errorf("%v", err)
	}

	expand := &phase{name: "Expand realizations"}
	realizations, err := sc.Expand()
	if err != nil {
		expand.errorf("%v", err)
		return []*phase{parse, physics, expand}
	}
	expand.notef("%d realization(s)", len(realizations))

	terr := &phase{name: "Terrain"}
	rough, err := b.TerrainFor(sc)
	if err != nil {
		terr.errorf("%v", err)
		return []*phase{parse, physics, expand, terr}
	}

	strict := *b
	strict.Strict = true
	configure := &phase{name: "Configure realizations"}
	for _, rz := range realizations {
		sim, err := strict.Build(sc, rz, rough)
		if err != nil {
			configure.errorf("realization %d: %v", rz.Index, err)
			continue
		}
		if err := sim.Ready(); err != nil {
			configure.errorf("realization %d: %v", rz.Index, err)
			continue
		}
		for _, w := range sim.Warnings() {
			configure.notef("realization %d: %s", rz.Index, w)
		}
		if rz.Index == 0 {
			configure.notef("%d station(s), %d height(s)", len(sim.Stations()), len(sim.Heights()))
		}
	}

	return []*phase{parse, physics, expand, terr, configure}
}

// report prints the phase table followed by details, returning whether every
// phase passed.
func report(w io.Writer, phases []*phase) bool {
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-32s %s\n", p.name, status)
	}

	for _, p := range phases {
		if len(p.errors) == 0 && len(p.notes) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
		for _, n := range p.notes {
			fmt.Fprintf(w, "  - %s\n", n)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nScenario is valid.")
		return true
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return false
}
