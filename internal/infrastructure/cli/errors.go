package cli

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/chronoplan/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/activity"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/planning"
	"github.com/felixgeelhaar/chronoplan/pkg/storage"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	var conflict *planning.ConflictError
	if errors.As(err, &conflict) {
		return NewCLIError(
			fmt.Sprintf("directive %s has anchored children", conflict.DirectiveID),
			"Retry with --strategy cascade, anchor_to_parent or anchor_to_plan",
			err,
		)
	}

	var resolution *planning.ResolutionError
	if errors.As(err, &resolution) {
		return NewCLIError(
			fmt.Sprintf("anchor parent %s matched %d directives", resolution.ParentID, resolution.Matches),
			"Run 'chronoplan plan show' to list directive IDs",
			err,
		)
	}

	switch {
	case errors.Is(err, wiring.ErrNotInitialized):
		return NewCLIError("workspace not initialized", "Run 'chronoplan init' to create a plan", err)
	case errors.Is(err, storage.ErrPlanNotFound):
		return NewCLIError("no plan found", "Run 'chronoplan init' to create a plan", err)
	case errors.Is(err, storage.ErrPlanCorrupt):
		return NewCLIError("plan file is corrupt", "Fix or remove .chronoplan/plan.yaml, then rerun the command", err)
	case errors.Is(err, storage.ErrVersionConflict):
		return NewCLIError("plan changed on disk", "Another session saved first; rerun the command", err)
	case errors.Is(err, planning.ErrNotFound):
		return NewCLIError("directive not found", "Run 'chronoplan plan show' to list directive IDs", err)
	case errors.Is(err, planning.ErrAmbiguous):
		return NewCLIError("directive ID is ambiguous", "Several directives share this ID; delete them from the plan file by hand", err)
	case errors.Is(err, planning.ErrUnknownStrategy):
		return NewCLIError("unknown deleted anchor strategy", "Use error, cascade, anchor_to_parent or anchor_to_plan", err)
	case errors.Is(err, activity.ErrUnknownType):
		return NewCLIError("unknown activity type", "Run 'chronoplan types' to list registered types", err)
	case errors.Is(err, activity.ErrInvalidArguments):
		return NewCLIError("invalid activity arguments", "Check --arg values against the type's schema", err)
	case errors.Is(err, planning.ErrNoResults):
		return NewCLIError("simulation produced no results", "", err)
	}

	return err
}
