package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed       = errors.New("validation failed")
	ErrPasswordTooShort       = errors.New("password is too short")
	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrPlayerNameRequired     = errors.New("player name is required")
	ErrInvalidPickCount       = errors.New("invalid tournament pick count")

	// Жизненный цикл турнира
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrTournamentNotEnoughParticipants   = errors.New("tournament needs at least two participants to be published")
	ErrTournamentFrozen                  = errors.New("participants are frozen once the tournament is published")
	ErrTournamentNotDraft                = errors.New("operation allowed only while tournament is a draft")
	ErrTournamentNotLive                 = errors.New("operation allowed only while tournament is live")
	ErrTournamentNoResult                = errors.New("tournament has no result to commit")

	// Прогнозы
	ErrForecastsClosed              = errors.New("forecasts are accepted only while the tournament is open")
	ErrForecastNotFound             = errors.New("forecast not found")
	ErrForecastPickCount            = errors.New("forecast must contain exactly the tournament pick count")
	ErrForecastDuplicatePick        = errors.New("forecast contains a duplicated player")
	ErrForecastPickNotParticipant   = errors.New("forecast references a player outside the tournament roster")

	// Итоги
	ErrResultUnknownPlayer  = errors.New("result references a player outside the tournament roster")
	ErrResultDuplicateRank  = errors.New("result contains a duplicated rank")
	ErrResultInvalidRank    = errors.New("result ranks must be positive integers")

	// Ошибки конфликтов
	ErrUserEmailConflict      = errors.New("email address is already in use")
	ErrUserNicknameConflict   = errors.New("nickname is already in use")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrPlayerNameConflict     = errors.New("player with this name already exists")
	ErrParticipantConflict    = errors.New("player is already a participant of this tournament")

	// Аутентификация и авторизация
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound        = errors.New("user not found")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrParticipantNotFound = errors.New("participant not found in tournament")
)
