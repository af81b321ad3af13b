package mcp

import (
	"github.com/felixgeelhaar/gritline/adapter/cli"
	"github.com/felixgeelhaar/gritline/internal/app"
	"github.com/google/uuid"
)

// NewCLIApp creates a CLI application instance backed by the provided container.
func NewCLIApp(container *app.Container, currentUser uuid.UUID) *cli.App {
	cliApp := cli.NewApp(
		container.CreateInstanceHandler,
		container.UpdateInstanceHandler,
		container.DeleteInstanceHandler,
		container.CompleteInstanceHandler,
		container.RecordResponseHandler,
		container.GetInstanceHandler,
		container.ListInstancesHandler,
		container.GetScoreHandler,
		container.WarmScoresHandler,
		container.SetSurveyProfileHandler,
	)

	cliApp.SetCurrentUserID(currentUser)
	cliApp.SetCatalog(container.Catalog)
	cliApp.SetHealthRegistry(container.Health)

	return cliApp
}
