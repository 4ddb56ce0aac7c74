package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	auditUseCase "github.com/pacharanero/checktick/internal/audit/usecase"
)

// RunCleanAuditEvents deletes unlock audit events older than the specified
// number of days. Supports text and JSON output formats.
//
// Requirements: Database must be migrated and accessible.
func RunCleanAuditEvents(
	ctx context.Context,
	useCase auditUseCase.UnlockAuditUseCase,
	logger *slog.Logger,
	out io.Writer,
	days int,
	format string,
) error {
	if days < 0 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}

	logger.Info("cleaning unlock audit events", slog.Int("days", days))

	retention := time.Duration(days) * 24 * time.Hour
	count, err := useCase.DeleteOlderThan(ctx, retention)
	if err != nil {
		return fmt.Errorf("failed to delete unlock audit events: %w", err)
	}

	if format == "json" {
		result := map[string]interface{}{
			"count": count,
			"days":  days,
		}
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(jsonBytes))
	} else {
		fmt.Fprintf(out, "Successfully deleted %d unlock audit event(s) older than %d day(s)\n", count, days)
	}

	logger.Info("cleanup completed",
		slog.Int64("count", count),
		slog.Int("days", days),
	)

	return nil
}
