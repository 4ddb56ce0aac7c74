package app

import (
	"fmt"

	auditHTTP "github.com/pacharanero/checktick/internal/audit/http"
	auditRepository "github.com/pacharanero/checktick/internal/audit/repository"
	auditUseCase "github.com/pacharanero/checktick/internal/audit/usecase"
	keysDomain "github.com/pacharanero/checktick/internal/keys/domain"
	keysHTTP "github.com/pacharanero/checktick/internal/keys/http"
	keysRepository "github.com/pacharanero/checktick/internal/keys/repository"
	keysService "github.com/pacharanero/checktick/internal/keys/service"
	keysUseCase "github.com/pacharanero/checktick/internal/keys/usecase"
)

// KeyDeriver returns the scrypt key deriver, wrapped with a derivation
// duration histogram when metrics are enabled.
func (c *Container) KeyDeriver() (keysService.KeyDeriver, error) {
	c.keyDeriverInit.Do(func() {
		deriver := keysService.NewScryptDeriver(
			keysService.WithScryptParams(
				c.config.KDFWorkFactor,
				c.config.KDFBlockSize,
				c.config.KDFParallelism,
			),
			keysService.WithMaxConcurrent(c.config.KDFMaxConcurrent),
		)

		if !c.config.MetricsEnabled {
			c.keyDeriver = deriver
			return
		}

		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["keyDeriver"] = fmt.Errorf("failed to get business metrics for key deriver: %w", err)
			return
		}
		c.keyDeriver = keysUseCase.NewKeyDeriverWithMetrics(deriver, businessMetrics)
	})
	if storedErr, exists := c.initErrors["keyDeriver"]; exists {
		return nil, storedErr
	}
	return c.keyDeriver, nil
}

// PhraseCodec returns the BIP39 recovery phrase codec.
func (c *Container) PhraseCodec() keysService.PhraseCodec {
	c.phraseCodecInit.Do(func() {
		c.phraseCodec = keysService.NewPhraseCodec()
	})
	return c.phraseCodec
}

// AEADManager returns the AEAD cipher factory.
func (c *Container) AEADManager() keysService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = keysService.NewAEADManager()
	})
	return c.aeadManager
}

// EnvelopeManager returns the envelope key manager.
func (c *Container) EnvelopeManager() (keysService.EnvelopeManager, error) {
	c.envelopeInit.Do(func() {
		deriver, err := c.KeyDeriver()
		if err != nil {
			c.initErrors["envelopeManager"] = err
			return
		}
		c.envelopeManager = keysService.NewEnvelopeManager(deriver, c.PhraseCodec(), c.AEADManager())
	})
	if storedErr, exists := c.initErrors["envelopeManager"]; exists {
		return nil, storedErr
	}
	return c.envelopeManager, nil
}

// LegacyMigrator returns the legacy key record migrator.
func (c *Container) LegacyMigrator() (keysService.LegacyMigrator, error) {
	c.legacyMigratorInit.Do(func() {
		envelope, err := c.EnvelopeManager()
		if err != nil {
			c.initErrors["legacyMigrator"] = err
			return
		}

		migrator, err := keysService.NewLegacyMigrator(envelope)
		if err != nil {
			c.initErrors["legacyMigrator"] = fmt.Errorf("failed to create legacy migrator: %w", err)
			return
		}
		c.legacyMigrator = migrator
	})
	if storedErr, exists := c.initErrors["legacyMigrator"]; exists {
		return nil, storedErr
	}
	return c.legacyMigrator, nil
}

// SurveyKeyRepository returns the survey key repository based on database driver.
func (c *Container) SurveyKeyRepository() (keysUseCase.SurveyKeyRepository, error) {
	c.surveyKeyRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["surveyKeyRepo"] = fmt.Errorf("failed to get database for survey key repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "postgres":
			c.surveyKeyRepo = keysRepository.NewPostgreSQLSurveyKeyRepository(db)
		case "mysql":
			c.surveyKeyRepo = keysRepository.NewMySQLSurveyKeyRepository(db)
		default:
			c.initErrors["surveyKeyRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["surveyKeyRepo"]; exists {
		return nil, storedErr
	}
	return c.surveyKeyRepo, nil
}

// UnlockEventRepository returns the unlock audit event repository based on database driver.
func (c *Container) UnlockEventRepository() (auditUseCase.UnlockEventRepository, error) {
	c.unlockEventRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["unlockEventRepo"] = fmt.Errorf("failed to get database for unlock event repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "postgres":
			c.unlockEventRepo = auditRepository.NewPostgreSQLUnlockEventRepository(db)
		case "mysql":
			c.unlockEventRepo = auditRepository.NewMySQLUnlockEventRepository(db)
		default:
			c.initErrors["unlockEventRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["unlockEventRepo"]; exists {
		return nil, storedErr
	}
	return c.unlockEventRepo, nil
}

// UnlockRecorder returns the unlock attempt audit recorder.
func (c *Container) UnlockRecorder() (auditUseCase.Recorder, error) {
	c.unlockRecorderInit.Do(func() {
		repo, err := c.UnlockEventRepository()
		if err != nil {
			c.initErrors["unlockRecorder"] = err
			return
		}
		c.unlockRecorder = auditUseCase.NewUnlockRecorder(repo, c.Logger())
	})
	if storedErr, exists := c.initErrors["unlockRecorder"]; exists {
		return nil, storedErr
	}
	return c.unlockRecorder, nil
}

// UnlockAuditUseCase returns the unlock audit query/retention use case.
func (c *Container) UnlockAuditUseCase() (auditUseCase.UnlockAuditUseCase, error) {
	c.unlockAuditUCInit.Do(func() {
		repo, err := c.UnlockEventRepository()
		if err != nil {
			c.initErrors["unlockAuditUC"] = err
			return
		}
		c.unlockAuditUC = auditUseCase.NewUnlockAuditUseCase(repo)
	})
	if storedErr, exists := c.initErrors["unlockAuditUC"]; exists {
		return nil, storedErr
	}
	return c.unlockAuditUC, nil
}

// UnlockEventHandler returns the HTTP handler for the unlock audit trail.
func (c *Container) UnlockEventHandler() (*auditHTTP.UnlockEventHandler, error) {
	c.unlockEventHandlerInit.Do(func() {
		useCase, err := c.UnlockAuditUseCase()
		if err != nil {
			c.initErrors["unlockEventHandler"] = fmt.Errorf("failed to get unlock audit use case for handler: %w", err)
			return
		}
		c.unlockEventHandler = auditHTTP.NewUnlockEventHandler(useCase, c.Logger())
	})
	if storedErr, exists := c.initErrors["unlockEventHandler"]; exists {
		return nil, storedErr
	}
	return c.unlockEventHandler, nil
}

// KeyUseCase returns the survey key lifecycle use case.
func (c *Container) KeyUseCase() (keysUseCase.KeyUseCase, error) {
	c.keyUseCaseInit.Do(func() {
		useCase, err := c.initKeyUseCase()
		if err != nil {
			c.initErrors["keyUseCase"] = err
			return
		}
		c.keyUseCase = useCase
	})
	if storedErr, exists := c.initErrors["keyUseCase"]; exists {
		return nil, storedErr
	}
	return c.keyUseCase, nil
}

// KeyHandler returns the HTTP handler for key lifecycle operations.
func (c *Container) KeyHandler() (*keysHTTP.KeyHandler, error) {
	c.keyHandlerInit.Do(func() {
		useCase, err := c.KeyUseCase()
		if err != nil {
			c.initErrors["keyHandler"] = err
			return
		}
		c.keyHandler = keysHTTP.NewKeyHandler(useCase, c.Logger())
	})
	if storedErr, exists := c.initErrors["keyHandler"]; exists {
		return nil, storedErr
	}
	return c.keyHandler, nil
}

// initKeyUseCase creates the key use case with all its dependencies.
func (c *Container) initKeyUseCase() (keysUseCase.KeyUseCase, error) {
	repo, err := c.SurveyKeyRepository()
	if err != nil {
		return nil, err
	}

	envelope, err := c.EnvelopeManager()
	if err != nil {
		return nil, err
	}

	migrator, err := c.LegacyMigrator()
	if err != nil {
		return nil, err
	}

	recorder, err := c.UnlockRecorder()
	if err != nil {
		return nil, err
	}

	algorithm, err := parseAlgorithm(c.config.EncryptionAlgorithm)
	if err != nil {
		return nil, err
	}

	baseUseCase := keysUseCase.NewKeyUseCase(
		repo,
		envelope,
		c.PhraseCodec(),
		migrator,
		c.SessionStore(),
		recorder,
		algorithm,
		c.config.UnlockSessionTTL,
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for key use case: %w", err)
		}
		return keysUseCase.NewKeyUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// parseAlgorithm validates the configured AEAD algorithm name.
func parseAlgorithm(s string) (keysDomain.Algorithm, error) {
	switch alg := keysDomain.Algorithm(s); alg {
	case keysDomain.AESGCM, keysDomain.ChaCha20:
		return alg, nil
	default:
		return "", fmt.Errorf("unsupported encryption algorithm: %s", s)
	}
}
