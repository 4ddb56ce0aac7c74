package app

import (
	"fmt"

	responsesHTTP "github.com/pacharanero/checktick/internal/responses/http"
	responsesRepository "github.com/pacharanero/checktick/internal/responses/repository"
	responsesUseCase "github.com/pacharanero/checktick/internal/responses/usecase"
)

// FieldValueRepository returns the encrypted field value repository based on database driver.
func (c *Container) FieldValueRepository() (responsesUseCase.FieldValueRepository, error) {
	c.fieldValueRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["fieldValueRepo"] = fmt.Errorf("failed to get database for field value repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "postgres":
			c.fieldValueRepo = responsesRepository.NewPostgreSQLFieldValueRepository(db)
		case "mysql":
			c.fieldValueRepo = responsesRepository.NewMySQLFieldValueRepository(db)
		default:
			c.initErrors["fieldValueRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["fieldValueRepo"]; exists {
		return nil, storedErr
	}
	return c.fieldValueRepo, nil
}

// ResponseUseCase returns the encrypted response field use case.
func (c *Container) ResponseUseCase() (responsesUseCase.ResponseUseCase, error) {
	c.responseUseCaseInit.Do(func() {
		useCase, err := c.initResponseUseCase()
		if err != nil {
			c.initErrors["responseUseCase"] = err
			return
		}
		c.responseUseCase = useCase
	})
	if storedErr, exists := c.initErrors["responseUseCase"]; exists {
		return nil, storedErr
	}
	return c.responseUseCase, nil
}

// ResponseHandler returns the HTTP handler for encrypted response field operations.
func (c *Container) ResponseHandler() (*responsesHTTP.ResponseHandler, error) {
	c.responseHandlerInit.Do(func() {
		useCase, err := c.ResponseUseCase()
		if err != nil {
			c.initErrors["responseHandler"] = err
			return
		}
		c.responseHandler = responsesHTTP.NewResponseHandler(useCase, c.Logger())
	})
	if storedErr, exists := c.initErrors["responseHandler"]; exists {
		return nil, storedErr
	}
	return c.responseHandler, nil
}

// initResponseUseCase creates the response use case with all its dependencies.
func (c *Container) initResponseUseCase() (responsesUseCase.ResponseUseCase, error) {
	fieldRepo, err := c.FieldValueRepository()
	if err != nil {
		return nil, err
	}

	keyRepo, err := c.SurveyKeyRepository()
	if err != nil {
		return nil, err
	}

	baseUseCase := responsesUseCase.NewResponseUseCase(
		fieldRepo,
		keyRepo,
		c.AEADManager(),
		c.SessionStore(),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for response use case: %w", err)
		}
		return responsesUseCase.NewResponseUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
