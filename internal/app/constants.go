package app

import "bidwhist/internal/domain"

// ErrUnknownAction rejects an action type the engine does not handle.
var ErrUnknownAction = &domain.Error{Kind: domain.KindValidation, Msg: "unknown action"}

// ErrSessionClosed rejects actions against a session that has been shut down.
var ErrSessionClosed = &domain.Error{Kind: domain.KindState, Msg: "session closed"}
