// ABOUTME: Process exit codes for pubfeed runs
// ABOUTME: Distinguishes usage errors from partial and total generation failures

package main

import (
	"errors"
	"fmt"

	"github.com/harper/pubfeed/internal/aggregate"
)

const (
	ExitOK      = 0
	ExitUsage   = 1 // bad flags or configuration
	ExitPartial = 2 // some artifacts produced, some missing or truncated
	ExitTotal   = 3 // nothing produced
)

// runError carries a generation report out of a command.
type runError struct {
	code   int
	report *aggregate.Report
}

func (e *runError) Error() string {
	switch e.code {
	case ExitTotal:
		return fmt.Sprintf("no feeds produced (%d failed)", e.report.Failures())
	default:
		return fmt.Sprintf("feeds produced with failures (%d produced, %d failed)",
			e.report.Produced(), e.report.Failures())
	}
}

// reportError returns nil for a clean report and a runError otherwise.
func reportError(report *aggregate.Report) error {
	switch {
	case report.TotalFailure():
		return &runError{code: ExitTotal, report: report}
	case report.PartialFailure():
		return &runError{code: ExitPartial, report: report}
	default:
		return nil
	}
}

func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var re *runError
	if errors.As(err, &re) {
		return re.code
	}
	return ExitUsage
}
