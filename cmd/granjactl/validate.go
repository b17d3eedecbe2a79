package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"granja/internal/core/apperror"
	"granja/internal/core/id"
	"granja/internal/domain/cycle"
)

// errInvalidRecords is returned when at least one record fails validation.
var errInvalidRecords = errors.New("invalid reproductive records")

func newValidateCycleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-cycle FILE",
		Short: "Validate a JSON file of reproductive records",
		Long: `Validates reproductive records without touching the store.

FILE holds either a JSON array of records or a sow document with a
"reproductiveRecords" array; "-" reads standard input. Records are checked
in file order, each against the ones accepted before it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return runValidateCycle(cmd.OutOrStdout(), data)
		},
	}
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("validate-cycle: read %s: %w", path, err)
	}
	return data, nil
}

func decodeCycles(data []byte) ([]cycle.Cycle, error) {
	trimmed := bytes.TrimSpace(data)
	var cycles []cycle.Cycle
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &cycles); err != nil {
			return nil, fmt.Errorf("validate-cycle: decode: %w", err)
		}
		return cycles, nil
	}
	var doc struct {
		ReproductiveRecords []cycle.Cycle `json:"reproductiveRecords"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("validate-cycle: decode: %w", err)
	}
	return doc.ReproductiveRecords, nil
}

func runValidateCycle(out io.Writer, data []byte) error {
	cycles, err := decodeCycles(data)
	if err != nil {
		return err
	}

	var accepted []cycle.Cycle
	failed := 0
	for i := range cycles {
		c := cycles[i]
		if id.IsNil(c.ID) {
			c.ID = id.New()
		}
		if c.CycleNumber == 0 {
			c.CycleNumber = nextCycleNumber(accepted)
		}
		c.Normalize()

		if err := cycle.Validate(&c, accepted); err != nil {
			failed++
			fmt.Fprintf(out, "record %d (cycle %d): invalid\n", i+1, c.CycleNumber)
			writeFieldErrors(out, err)
			continue
		}
		accepted = append(accepted, c)
		fmt.Fprintf(out, "record %d (cycle %d): ok, state %s\n", i+1, c.CycleNumber, cycle.DeriveState(&c, nil))
	}

	fmt.Fprintf(out, "%d of %d records valid\n", len(cycles)-failed, len(cycles))
	if failed > 0 {
		return errInvalidRecords
	}
	return nil
}

func nextCycleNumber(cycles []cycle.Cycle) int {
	highest := 0
	for i := range cycles {
		highest = max(highest, cycles[i].CycleNumber)
	}
	return highest + 1
}

func writeFieldErrors(out io.Writer, err error) {
	appErr, ok := apperror.AsAppError(err)
	if !ok {
		fmt.Fprintf(out, "  %v\n", err)
		return
	}
	fields := appErr.Fields()
	if len(fields) == 0 {
		fmt.Fprintf(out, "  %s\n", appErr.Message)
		return
	}
	for _, f := range fields {
		fmt.Fprintf(out, "  %s [%s]: %s\n", f.Field, f.Rule, f.Message)
	}
}
