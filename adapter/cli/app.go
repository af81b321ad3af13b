package cli

import (
	"github.com/felixgeelhaar/gritline/internal/grit/application/commands"
	"github.com/felixgeelhaar/gritline/internal/grit/application/queries"
	"github.com/felixgeelhaar/gritline/internal/grit/domain/trigger"
	"github.com/felixgeelhaar/gritline/pkg/observability"
	"github.com/google/uuid"
)

// App holds the CLI application dependencies.
type App struct {
	// Instance Command Handlers
	CreateInstanceHandler   *commands.CreateInstanceHandler
	UpdateInstanceHandler   *commands.UpdateInstanceHandler
	DeleteInstanceHandler   *commands.DeleteInstanceHandler
	CompleteInstanceHandler *commands.CompleteInstanceHandler
	RecordResponseHandler   *commands.RecordResponseHandler

	// Instance Query Handlers
	GetInstanceHandler   *queries.GetInstanceHandler
	ListInstancesHandler *queries.ListInstancesHandler

	// Score Query Handlers
	GetScoreHandler   *queries.GetScoreHandler
	WarmScoresHandler *queries.WarmScoresHandler

	// Survey
	SetSurveyProfileHandler *commands.SetSurveyProfileHandler

	// Trigger catalog, for listing questions
	Catalog *trigger.Catalog

	// Health of the backing services
	Health *observability.HealthRegistry

	// Current user (configured per environment)
	CurrentUserID uuid.UUID
}

// NewApp creates a new CLI application with the provided handlers.
func NewApp(
	createInstanceHandler *commands.CreateInstanceHandler,
	updateInstanceHandler *commands.UpdateInstanceHandler,
	deleteInstanceHandler *commands.DeleteInstanceHandler,
	completeInstanceHandler *commands.CompleteInstanceHandler,
	recordResponseHandler *commands.RecordResponseHandler,
	getInstanceHandler *queries.GetInstanceHandler,
	listInstancesHandler *queries.ListInstancesHandler,
	getScoreHandler *queries.GetScoreHandler,
	warmScoresHandler *queries.WarmScoresHandler,
	setSurveyProfileHandler *commands.SetSurveyProfileHandler,
) *App {
	return &App{
		CreateInstanceHandler:   createInstanceHandler,
		UpdateInstanceHandler:   updateInstanceHandler,
		DeleteInstanceHandler:   deleteInstanceHandler,
		CompleteInstanceHandler: completeInstanceHandler,
		RecordResponseHandler:   recordResponseHandler,
		GetInstanceHandler:      getInstanceHandler,
		ListInstancesHandler:    listInstancesHandler,
		GetScoreHandler:         getScoreHandler,
		WarmScoresHandler:       warmScoresHandler,
		SetSurveyProfileHandler: setSurveyProfileHandler,
		CurrentUserID:           uuid.Nil,
	}
}

// SetCurrentUserID updates the current user ID.
func (a *App) SetCurrentUserID(id uuid.UUID) {
	a.CurrentUserID = id
}

// SetCatalog sets the trigger catalog.
func (a *App) SetCatalog(catalog *trigger.Catalog) {
	a.Catalog = catalog
}

// SetHealthRegistry sets the registry reported by the health command.
func (a *App) SetHealthRegistry(registry *observability.HealthRegistry) {
	a.Health = registry
}

// app is the global CLI application instance.
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
