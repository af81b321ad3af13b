package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/gritline/adapter/cli"
	"github.com/felixgeelhaar/gritline/internal/grit/application/commands"
	"github.com/felixgeelhaar/gritline/internal/grit/application/queries"
	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/felixgeelhaar/mcp-go"
)

type instanceCreateInput struct {
	TaskID                string  `json:"task_id,omitempty"`
	ExpectedAversion      float64 `json:"expected_aversion,omitempty"`
	ExpectedRelief        float64 `json:"expected_relief,omitempty"`
	ExpectedEmotionalLoad float64 `json:"expected_emotional_load,omitempty"`
	TimeEstimateMinutes   float64 `json:"time_estimate_minutes" jsonschema:"required"`
	TaskDifficulty        float64 `json:"task_difficulty,omitempty"`
}

type instanceCompleteInput struct {
	InstanceID          string             `json:"instance_id" jsonschema:"required"`
	CompletionPercent   *float64           `json:"completion_percent,omitempty"`
	TimeActualMinutes   float64            `json:"time_actual_minutes" jsonschema:"required"`
	ActualRelief        float64            `json:"actual_relief,omitempty"`
	ActualEmotionalLoad float64            `json:"actual_emotional_load,omitempty"`
	ActualDifficulty    float64            `json:"actual_difficulty,omitempty"`
	StartupDelayMinutes float64            `json:"startup_delay_minutes,omitempty"`
	EmotionValues       map[string]float64 `json:"emotion_values,omitempty"`
	Notes               string             `json:"notes,omitempty"`
}

type instanceUpdateInput struct {
	InstanceID string            `json:"instance_id" jsonschema:"required"`
	Predicted  *domain.Predicted `json:"predicted,omitempty"`
	Actuals    *domain.Actuals   `json:"actuals,omitempty"`
}

type instanceIDInput struct {
	InstanceID string `json:"instance_id" jsonschema:"required"`
}

type instanceListInput struct {
	TaskID string `json:"task_id" jsonschema:"required"`
}

type triggerRespondInput struct {
	InstanceID string   `json:"instance_id" jsonschema:"required"`
	Path       []string `json:"path" jsonschema:"required"`
	FreeText   string   `json:"free_text,omitempty"`
}

type surveySetInput struct {
	Struggles []string `json:"struggles"`
}

func registerInstanceTools(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Tool("instance.create").
		Description("Create a pending task instance with predictions (0-100 scales, estimate in minutes). Omit task_id to start a new task.").
		Handler(func(ctx context.Context, input instanceCreateInput) (*commands.CreateInstanceResult, error) {
			return createInstance(ctx, app, input)
		})

	srv.Tool("instance.complete").
		Description("Record what actually happened. Returns the scores and the follow-up question to ask, if any.").
		Handler(func(ctx context.Context, input instanceCompleteInput) (*commands.CompleteInstanceResult, error) {
			return completeInstance(ctx, app, input)
		})

	srv.Tool("instance.update").
		Description("Replace the predictions or actuals of an instance").
		Handler(func(ctx context.Context, input instanceUpdateInput) (*queries.InstanceDTO, error) {
			return updateInstance(ctx, app, input)
		})

	srv.Tool("instance.show").
		Description("Show an instance with its scores and follow-up state").
		Handler(func(ctx context.Context, input instanceIDInput) (*queries.InstanceDTO, error) {
			return showInstance(ctx, app, input)
		})

	srv.Tool("instance.list").
		Description("List the instances of a task, oldest first").
		Handler(func(ctx context.Context, input instanceListInput) ([]queries.InstanceDTO, error) {
			return listInstances(ctx, app, input)
		})

	srv.Tool("instance.delete").
		Description("Delete an instance and recompute the affected scores").
		Handler(func(ctx context.Context, input instanceIDInput) (map[string]string, error) {
			return deleteInstance(ctx, app, input)
		})

	srv.Tool("trigger.respond").
		Description("Answer the follow-up question of an instance. path lists option codes from the first question down.").
		Handler(func(ctx context.Context, input triggerRespondInput) (*commands.RecordResponseResult, error) {
			return respond(ctx, app, input)
		})

	srv.Tool("survey.set").
		Description("Replace the struggle survey (procrastination, perfectionism, overwhelm, low_energy, distractibility)").
		Handler(func(ctx context.Context, input surveySetInput) (map[string]any, error) {
			return setSurvey(ctx, app, input)
		})

	return nil
}

func createInstance(ctx context.Context, app *cli.App, input instanceCreateInput) (*commands.CreateInstanceResult, error) {
	if app == nil || app.CreateInstanceHandler == nil {
		return nil, errors.New("instance creation not available")
	}
	taskID, err := parseOptionalUUID("task_id", input.TaskID)
	if err != nil {
		return nil, err
	}
	return app.CreateInstanceHandler.Handle(ctx, commands.CreateInstanceCommand{
		UserID: app.CurrentUserID,
		TaskID: taskID,
		Predicted: domain.Predicted{
			ExpectedAversion:      input.ExpectedAversion,
			ExpectedRelief:        input.ExpectedRelief,
			ExpectedEmotionalLoad: input.ExpectedEmotionalLoad,
			TimeEstimateMinutes:   input.TimeEstimateMinutes,
			TaskDifficulty:        input.TaskDifficulty,
		},
	})
}

func completeInstance(ctx context.Context, app *cli.App, input instanceCompleteInput) (*commands.CompleteInstanceResult, error) {
	if app == nil || app.CompleteInstanceHandler == nil {
		return nil, errors.New("instance completion not available")
	}
	instanceID, err := parseUUID("instance_id", input.InstanceID)
	if err != nil {
		return nil, err
	}

	completion := 100.0
	if input.CompletionPercent != nil {
		completion = *input.CompletionPercent
	}

	return app.CompleteInstanceHandler.Handle(ctx, commands.CompleteInstanceCommand{
		InstanceID: instanceID,
		UserID:     app.CurrentUserID,
		Actuals: domain.Actuals{
			CompletionPercent:   completion,
			TimeActualMinutes:   input.TimeActualMinutes,
			ActualRelief:        input.ActualRelief,
			ActualEmotionalLoad: input.ActualEmotionalLoad,
			ActualDifficulty:    input.ActualDifficulty,
			StartupDelayMinutes: input.StartupDelayMinutes,
			EmotionValues:       input.EmotionValues,
			Notes:               input.Notes,
		},
	})
}

func updateInstance(ctx context.Context, app *cli.App, input instanceUpdateInput) (*queries.InstanceDTO, error) {
	if app == nil || app.UpdateInstanceHandler == nil || app.GetInstanceHandler == nil {
		return nil, errors.New("instance update not available")
	}
	instanceID, err := parseUUID("instance_id", input.InstanceID)
	if err != nil {
		return nil, err
	}

	err = app.UpdateInstanceHandler.Handle(ctx, commands.UpdateInstanceCommand{
		InstanceID: instanceID,
		UserID:     app.CurrentUserID,
		Predicted:  input.Predicted,
		Actuals:    input.Actuals,
	})
	if err != nil {
		return nil, err
	}
	return app.GetInstanceHandler.Handle(ctx, queries.GetInstanceQuery{
		InstanceID: instanceID,
		UserID:     app.CurrentUserID,
	})
}

func showInstance(ctx context.Context, app *cli.App, input instanceIDInput) (*queries.InstanceDTO, error) {
	if app == nil || app.GetInstanceHandler == nil {
		return nil, errors.New("instance lookup not available")
	}
	instanceID, err := parseUUID("instance_id", input.InstanceID)
	if err != nil {
		return nil, err
	}
	return app.GetInstanceHandler.Handle(ctx, queries.GetInstanceQuery{
		InstanceID: instanceID,
		UserID:     app.CurrentUserID,
	})
}

func listInstances(ctx context.Context, app *cli.App, input instanceListInput) ([]queries.InstanceDTO, error) {
	if app == nil || app.ListInstancesHandler == nil {
		return nil, errors.New("instance listing not available")
	}
	taskID, err := parseUUID("task_id", input.TaskID)
	if err != nil {
		return nil, err
	}
	return app.ListInstancesHandler.Handle(ctx, queries.ListInstancesQuery{
		UserID: app.CurrentUserID,
		TaskID: taskID,
	})
}

func deleteInstance(ctx context.Context, app *cli.App, input instanceIDInput) (map[string]string, error) {
	if app == nil || app.DeleteInstanceHandler == nil {
		return nil, errors.New("instance deletion not available")
	}
	instanceID, err := parseUUID("instance_id", input.InstanceID)
	if err != nil {
		return nil, err
	}
	err = app.DeleteInstanceHandler.Handle(ctx, commands.DeleteInstanceCommand{
		InstanceID: instanceID,
		UserID:     app.CurrentUserID,
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"deleted": instanceID.String()}, nil
}

func respond(ctx context.Context, app *cli.App, input triggerRespondInput) (*commands.RecordResponseResult, error) {
	if app == nil || app.RecordResponseHandler == nil {
		return nil, errors.New("responses not available")
	}
	instanceID, err := parseUUID("instance_id", input.InstanceID)
	if err != nil {
		return nil, err
	}
	if len(input.Path) == 0 {
		return nil, errors.New("path is required")
	}
	return app.RecordResponseHandler.Handle(ctx, commands.RecordResponseCommand{
		InstanceID: instanceID,
		UserID:     app.CurrentUserID,
		Path:       input.Path,
		FreeText:   input.FreeText,
	})
}

func setSurvey(ctx context.Context, app *cli.App, input surveySetInput) (map[string]any, error) {
	if app == nil || app.SetSurveyProfileHandler == nil {
		return nil, errors.New("survey not available")
	}
	struggles, err := app.SetSurveyProfileHandler.Handle(ctx, commands.SetSurveyProfileCommand{
		UserID:    app.CurrentUserID,
		Struggles: input.Struggles,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"struggles": struggles}, nil
}
