package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	keysUseCase "github.com/pacharanero/checktick/internal/keys/usecase"
)

// RunMigrateLegacyKey upgrades a legacy raw-key survey record to the
// dual-wrap format. The owner re-enters the raw key (hex) and chooses a new
// passphrase; the freshly generated recovery phrase is printed exactly once.
//
// Requirements: Database must be migrated and accessible.
func RunMigrateLegacyKey(
	ctx context.Context,
	useCase keysUseCase.KeyUseCase,
	logger *slog.Logger,
	io IOTuple,
	surveyIDStr string,
	format string,
) error {
	surveyID, err := uuid.Parse(surveyIDStr)
	if err != nil {
		return fmt.Errorf("invalid survey id: %w", err)
	}

	reader := bufio.NewReader(io.Reader)
	rawKey, err := promptLine(io.Writer, reader, "Enter the survey's raw key (hex): ")
	if err != nil {
		return err
	}

	passphrase, err := promptLine(io.Writer, reader, "Enter new survey passphrase: ")
	if err != nil {
		return err
	}

	confirm, err := promptLine(io.Writer, reader, "Confirm new survey passphrase: ")
	if err != nil {
		return err
	}
	if passphrase != confirm {
		return fmt.Errorf("passphrases do not match")
	}

	logger.Info("migrating legacy survey key", slog.String("survey_id", surveyID.String()))

	out, err := useCase.MigrateLegacy(ctx, surveyID, rawKey, passphrase)
	if err != nil {
		return fmt.Errorf("failed to migrate legacy survey key: %w", err)
	}

	if format == "json" {
		result := map[string]string{
			"survey_id":       surveyID.String(),
			"recovery_phrase": out.RecoveryPhrase,
			"recovery_hint":   out.RecoveryHint,
		}
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(io.Writer, string(jsonBytes))
		return nil
	}

	fmt.Fprintf(io.Writer, "\nSurvey key migrated for %s\n\n", surveyID)
	fmt.Fprintf(io.Writer, "Recovery phrase (shown once, store it safely):\n  %s\n\n", out.RecoveryPhrase)
	fmt.Fprintf(io.Writer, "Recovery hint: %s\n", out.RecoveryHint)

	return nil
}
