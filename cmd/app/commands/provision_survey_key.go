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

// RunProvisionSurveyKey provisions the encryption key record for a survey.
// The passphrase is read interactively. The recovery phrase and raw DEK are
// printed exactly once and are not retrievable afterwards.
//
// Requirements: Database must be migrated and accessible.
func RunProvisionSurveyKey(
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
	passphrase, err := promptLine(io.Writer, reader, "Enter survey passphrase: ")
	if err != nil {
		return err
	}

	confirm, err := promptLine(io.Writer, reader, "Confirm survey passphrase: ")
	if err != nil {
		return err
	}
	if passphrase != confirm {
		return fmt.Errorf("passphrases do not match")
	}

	logger.Info("provisioning survey key", slog.String("survey_id", surveyID.String()))

	out, err := useCase.Provision(ctx, surveyID, passphrase)
	if err != nil {
		return fmt.Errorf("failed to provision survey key: %w", err)
	}

	if format == "json" {
		result := map[string]string{
			"survey_id":       surveyID.String(),
			"recovery_phrase": out.RecoveryPhrase,
			"recovery_hint":   out.RecoveryHint,
			"raw_dek":         out.RawDekHex,
		}
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(io.Writer, string(jsonBytes))
		return nil
	}

	fmt.Fprintf(io.Writer, "\nSurvey key provisioned for %s\n\n", surveyID)
	fmt.Fprintf(io.Writer, "Recovery phrase (shown once, store it safely):\n  %s\n\n", out.RecoveryPhrase)
	fmt.Fprintf(io.Writer, "Recovery hint: %s\n\n", out.RecoveryHint)
	fmt.Fprintf(io.Writer, "Raw data key (hex, shown once):\n  %s\n", out.RawDekHex)

	return nil
}
