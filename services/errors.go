package services

import "errors"

// Ошибки сервисного слоя, маппятся на HTTP в handlers.
var (
	ErrMatchNotFound = errors.New("match not found")

	ErrMatchFieldsRequired     = errors.New("team names, date, time, venue and sport are all required")
	ErrTeamNamesIdentical      = errors.New("team names must be different")
	ErrInvalidMatchDate        = errors.New("match date must be in YYYY-MM-DD format")
	ErrInvalidMatchTime        = errors.New("match time must be in HH:MM format")
	ErrInvalidMatchStatus      = errors.New("invalid match status provided")
	ErrInvalidStatusTransition = errors.New("match status transition not allowed")

	ErrInvalidCredentials = errors.New("invalid admin credentials")
)
