package services

import "errors"

// Shared errors surfaced across services and mapped to HTTP statuses by the
// handler layer.
var (
	ErrNotFound   = errors.New("requested resource not found")
	ErrValidation = errors.New("invalid input")

	// State machine and progression rule violations
	ErrInvalidPhaseTransition = errors.New("invalid tournament phase transition")
	ErrTournamentTerminal     = errors.New("tournament is in a terminal phase")
	ErrMatchesIncomplete      = errors.New("tournament has unresolved matches")
	ErrGroupStageIncomplete   = errors.New("group stage has unresolved matches")
	ErrNotGroupFormat         = errors.New("tournament format has no group stage")
	ErrNoNextRound            = errors.New("no eligible next-round match to advance into")
	ErrTournamentNotCompleted = errors.New("tournament has not completed yet")
	ErrTournamentNotDraft     = errors.New("tournament bracket already generated")

	// Enrollment and result submission
	ErrEnrollmentEmpty          = errors.New("enrollment list is empty")
	ErrEnrollmentDuplicate      = errors.New("enrollment list contains duplicate participants")
	ErrMatchAlreadyCompleted    = errors.New("match result already submitted")
	ErrMatchSlotsUnfilled       = errors.New("match participants are not decided yet")
	ErrResultScoresRequired     = errors.New("result scores are required")
	ErrKnockoutDrawNotAllowed   = errors.New("knockout matches cannot end in a draw")
	ErrUnsupportedFormat        = errors.New("unsupported tournament format")
	ErrParticipantNotInSnapshot = errors.New("participant is not in the enrollment snapshot")

	// Reward distribution
	ErrDistributionContended = errors.New("reward distribution is already running for this user, retry later")
)
