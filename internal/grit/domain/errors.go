package domain

import "errors"

var (
	ErrInstanceNotFound         = errors.New("task instance not found")
	ErrInstanceNotCompleted     = errors.New("task instance is not completed")
	ErrInstanceAlreadyCompleted = errors.New("task instance is already completed")
	ErrScoreNotComputed         = errors.New("scores have not been computed for this instance")
	ErrTriggerAlreadyEvaluated  = errors.New("trigger already evaluated for this instance")
	ErrNoTriggerFired           = errors.New("no trigger fired for this instance")
	ErrResponseAlreadyRecorded  = errors.New("trigger response already recorded")
	ErrInvalidResponsePath      = errors.New("response path does not resolve to an answer")
	ErrNotOwner                 = errors.New("instance belongs to another user")
	ErrUnknownStruggle          = errors.New("unknown survey struggle")
	ErrInvalidScope             = errors.New("invalid score scope")
)
