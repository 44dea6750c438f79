package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arcampus/arcampus/internal/detection"
	"github.com/arcampus/arcampus/internal/history"
	"github.com/arcampus/arcampus/internal/tracking/sim"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Replay step operations.
const (
	opDetect    = "detect"
	opReset     = "reset"
	opInterrupt = "interrupt"
	opResume    = "resume"
	opDisappear = "disappear"
	opAppear    = "appear"
	opFail      = "fail"
)

const defaultFailMessage = "camera unavailable"

// script is a replay file:
//
//	steps:
//	  - detect rr_1
//	  - reset
//	  - fail lost tracking
type script struct {
	Steps []string `yaml:"steps"`
}

type step struct {
	Op  string
	Arg string
}

func (s step) String() string {
	if s.Arg == "" {
		return s.Op
	}
	return s.Op + " " + s.Arg
}

func parseScript(data []byte) ([]step, error) {
	var sc script
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decoding replay script: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, errors.New("replay script has no steps")
	}

	steps := make([]step, 0, len(sc.Steps))
	for i, line := range sc.Steps {
		op, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		st := step{Op: strings.ToLower(op), Arg: strings.TrimSpace(arg)}

		switch st.Op {
		case opDetect:
			if st.Arg == "" {
				return nil, fmt.Errorf("step %d: detect needs an image id", i+1)
			}
		case opFail:
			if st.Arg == "" {
				st.Arg = defaultFailMessage
			}
		case opReset, opInterrupt, opResume, opDisappear, opAppear:
			if st.Arg != "" {
				return nil, fmt.Errorf("step %d: %s takes no argument", i+1, st.Op)
			}
		default:
			return nil, fmt.Errorf("step %d: unknown operation %q", i+1, op)
		}
		steps = append(steps, st)
	}
	return steps, nil
}

// replayer drives scripted steps through the simulated runtime and the
// controller, waiting for each step's work to finish before the next.
type replayer struct {
	runtime *sim.Runtime
	ctrl    *detection.Controller
	warn    io.Writer
}

func (r *replayer) run(ctx context.Context, steps []step) error {
	if err := r.ctrl.Drain(ctx); err != nil {
		return err
	}
	for i, st := range steps {
		if err := r.apply(st); err != nil {
			fmt.Fprintf(r.warn, "step %d (%s): %v\n", i+1, st, err)
		}
		r.runtime.Sync()
		if err := r.ctrl.Drain(ctx); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, st, err)
		}
	}
	return nil
}

func (r *replayer) apply(st step) error {
	switch st.Op {
	case opDetect:
		return r.runtime.Point(st.Arg)
	case opReset:
		return r.ctrl.Reset()
	case opInterrupt:
		r.runtime.Interrupt()
	case opResume:
		r.runtime.EndInterruption()
	case opDisappear:
		return r.ctrl.ViewWillDisappear()
	case opAppear:
		return r.ctrl.ViewWillAppear()
	case opFail:
		r.runtime.Fail(errors.New(st.Arg))
	}
	return nil
}

func newReplayCmd() *cobra.Command {
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Run a scripted session headlessly and print the resulting history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := strings.ToLower(formatFlag)
			if format != "tsv" && format != "json" {
				return fmt.Errorf("unsupported format %q (want tsv or json)", formatFlag)
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading replay script: %w", err)
			}
			steps, err := parseScript(data)
			if err != nil {
				return err
			}

			a, err := newApp(appOptions{ConfigDir: configDir})
			if err != nil {
				return err
			}
			errs := cmd.ErrOrStderr()
			runErr := a.begin()
			if runErr == nil {
				r := &replayer{runtime: a.runtime, ctrl: a.controller, warn: errs}
				runErr = r.run(cmd.Context(), steps)
			}
			if status := a.headless.Status(); status != "" {
				fmt.Fprintf(errs, "status: %s\n", status)
			}

			records := a.controller.History()
			if err := errors.Join(runErr, a.shutdown()); err != nil {
				return err
			}
			return history.Write(cmd.OutOrStdout(), records, format)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&formatFlag, "format", "tsv", "output format: tsv or json")

	return cmd
}
