package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"bidwhist/internal/app"
	"bidwhist/internal/config"
	"bidwhist/internal/domain"
	"bidwhist/internal/ports/wire"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// MatchState holds the authoritative runtime state for one table.
type MatchState struct {
	TableID     string             `json:"table_id"`
	PointsToWin int                `json:"points_to_win"`
	Tick        int64              `json:"tick"`
	Config      config.TableConfig `json:"-"`
	Rules       domain.Rules       `json:"-"`
	Lobby       *domain.Lobby      `json:"-"` // Seat claims until the game starts
	Session     *app.Session       `json:"-"` // nil while in the lobby
	Clock       *app.TurnClock     `json:"-"`
	Service     *app.Service       `json:"-"`
	// Presences maps UserId -> Presence for targeted messaging.
	Presences map[string]runtime.Presence `json:"-"`
	// Names keeps display names after a controller disconnects.
	Names      map[string]string `json:"-"`
	EmptySince time.Time         `json:"-"`
	lastLabel  string
}

// Started reports whether the lobby has turned into a game.
func (ms *MatchState) Started() bool {
	return ms.Session != nil
}

// GetOpenSeatsCount returns unclaimed seats, or zero once the game started.
func (ms *MatchState) GetOpenSeatsCount() int {
	if ms.Started() {
		return 0
	}
	return ms.Lobby.OpenSeats()
}

// isSeated reports whether userID plays at least one seat.
func (ms *MatchState) isSeated(userID string) bool {
	if ms.Started() {
		for _, c := range ms.Session.Controllers() {
			if c == userID {
				return true
			}
		}
		return false
	}
	return ms.Lobby.Seats.HasController(userID)
}

func (ms *MatchState) phase() string {
	if !ms.Started() {
		return matchLabelLobby
	}
	return string(ms.Session.Phase())
}

type matchHandler struct {
	now func() time.Time
}

func newMatchHandler() *matchHandler {
	return &matchHandler{now: time.Now}
}

// MatchInit is called when the match is created. params may carry
// "points_to_win".
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing table.")

	if err := config.LoadTableConfig(config.DefaultPath); err != nil {
		logger.Warn("MatchInit: Could not load table config, using defaults: %v", err)
	}
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	cfg := config.Get().WithEnv(env)

	rules, err := cfg.Rules(intParam(params, MatchLabelKey_PointsToWin))
	if err != nil {
		logger.Error("MatchInit: Invalid table rules: %v", err)
		return nil, 0, ""
	}
	tableID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)

	state := &MatchState{
		TableID:     tableID,
		PointsToWin: rules.PointsToWin,
		Config:      cfg,
		Rules:       rules,
		Lobby:       domain.NewLobby(),
		Service:     app.NewService(nil),
		Presences:   make(map[string]runtime.Presence),
		Names:       make(map[string]string),
	}

	label, err := mh.label(state)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	state.lastLabel = label

	logger.Info("MatchInit: Table %s created (points_to_win=%d, turn=%s)", tableID, rules.PointsToWin, cfg.TurnDuration())
	return state, tickRate, label
}

// MatchJoinAttempt admits anyone while the table is in its lobby and only
// seated controllers once the game has started, so they can reconnect.
func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	userID := presence.GetUserId()
	if matchState.Started() {
		if !matchState.isSeated(userID) {
			return state, false, "Game in progress"
		}
		return state, true, ""
	}
	if _, present := matchState.Presences[userID]; !present && len(matchState.Presences) >= domain.NumSeats {
		return state, false, "Table full"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	displayNames := lookupDisplayNames(ctx, logger, nk, presences)
	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p
		if name := displayNames[p.GetUserId()]; name != "" {
			matchState.Names[p.GetUserId()] = name
		} else if name := p.GetUsername(); name != "" {
			matchState.Names[p.GetUserId()] = name
		} else if _, known := matchState.Names[p.GetUserId()]; !known {
			matchState.Names[p.GetUserId()] = p.GetUserId()
		}
		logger.Debug("MatchJoin: User %s joined table %s.", p.GetUserId(), matchState.TableID)
	}
	matchState.EmptySince = time.Time{}

	if matchState.Started() {
		// Reconnects get their private view; everyone sees them connected.
		mh.broadcastSnapshots(matchState, dispatcher, logger)
	} else {
		mh.broadcastLobby(matchState, dispatcher, logger)
	}
	mh.updateLabel(matchState, dispatcher, logger)

	return matchState
}

// MatchLeave frees lobby seats. Once the game started seats are kept so the
// controller can reconnect; the turn clock plays for them meanwhile.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)
		if !matchState.Started() {
			delete(matchState.Names, userID)
			if matchState.Lobby.RemoveController(userID) {
				logger.Debug("MatchLeave: User %s left, lobby seats freed.", userID)
			}
		} else {
			logger.Info("MatchLeave: User %s disconnected from running table %s.", userID, matchState.TableID)
		}
	}

	if len(matchState.Presences) == 0 {
		if !matchState.Started() {
			logger.Info("MatchLeave: Terminating empty lobby %s.", matchState.TableID)
			return nil
		}
		matchState.EmptySince = mh.now()
	}

	if matchState.Started() {
		mh.broadcastSnapshots(matchState, dispatcher, logger)
	} else {
		mh.broadcastLobby(matchState, dispatcher, logger)
	}
	mh.updateLabel(matchState, dispatcher, logger)

	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch op := msg.GetOpCode(); op {
		case wire.OpClaimSeat, wire.OpReleaseSeat, wire.OpSetReady:
			mh.handleLobby(matchState, dispatcher, logger, msg)
		case wire.OpDealerGuess, wire.OpPlaceBid, wire.OpSelectTrump, wire.OpPlayCard, wire.OpReadyForNextHand:
			mh.handleAction(matchState, dispatcher, logger, msg)
		case wire.OpRequestSnapshot:
			mh.handleSnapshotRequest(matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", op)
		}
	}

	if !matchState.Started() {
		return matchState
	}

	now := mh.now()
	if !matchState.EmptySince.IsZero() && matchState.Config.EmptyTableTimeout() > 0 &&
		now.Sub(matchState.EmptySince) >= matchState.Config.EmptyTableTimeout() {
		logger.Info("MatchLoop: Terminating table %s, nobody connected for %s.", matchState.TableID, matchState.Config.EmptyTableTimeout())
		matchState.Session.Close()
		return nil
	}

	events, err := matchState.Clock.Tick(matchState.Session, now)
	if err != nil {
		logger.Error("MatchLoop: Turn timeout failed on table %s: %v", matchState.TableID, err)
		return matchState
	}
	if len(events) > 0 {
		logger.Debug("MatchLoop: Turn timed out on table %s, %d events.", matchState.TableID, len(events))
		mh.publish(matchState, dispatcher, logger, events)
	}

	return matchState
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated, grace %d seconds", graceSeconds)
	if matchState, ok := state.(*MatchState); ok && matchState.Started() {
		matchState.Session.Close()
	}
	return state
}

// MatchSignal answers {"type":"is_seated","user_id":...} with "true" or
// "false". Other signals get an empty reply.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, ""
	}
	var req signalRequest
	if err := json.Unmarshal([]byte(data), &req); err != nil {
		logger.Warn("MatchSignal: Invalid signal: %v", err)
		return state, ""
	}
	switch req.Type {
	case signalIsSeated:
		if matchState.isSeated(req.UserID) {
			return state, "true"
		}
		return state, "false"
	default:
		return state, ""
	}
}

type signalRequest struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

func (mh *matchHandler) handleLobby(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if state.Started() {
		mh.sendError(state, dispatcher, logger, senderID, domain.ErrGameInProgress)
		return
	}

	var err error
	switch msg.GetOpCode() {
	case wire.OpClaimSeat:
		var seat int
		var team domain.Team
		if seat, team, err = wire.DecodeClaimSeat(msg.GetData()); err == nil {
			err = state.Lobby.Claim(seat, senderID, team)
		}
	case wire.OpReleaseSeat:
		var seat int
		if seat, err = wire.DecodeReleaseSeat(msg.GetData()); err == nil {
			err = state.Lobby.Release(seat, senderID)
		}
	case wire.OpSetReady:
		var ready bool
		if ready, err = wire.DecodeSetReady(msg.GetData()); err == nil {
			err = state.Lobby.SetReady(senderID, ready)
		}
	}
	if err != nil {
		logger.Warn("handleLobby: User %s rejected (op %d): %v", senderID, msg.GetOpCode(), err)
		mh.sendError(state, dispatcher, logger, senderID, err)
		return
	}

	mh.broadcastLobby(state, dispatcher, logger)
	mh.tryStart(state, dispatcher, logger)
	mh.updateLabel(state, dispatcher, logger)
}

// tryStart turns the lobby into a game once the seating is complete and
// every controller is ready.
func (mh *matchHandler) tryStart(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	seating, err := state.Lobby.Start()
	if err != nil {
		return
	}
	session, events, err := app.NewSession(state.Service, seating, state.Rules)
	if err != nil {
		logger.Error("tryStart: Failed to start game on table %s: %v", state.TableID, err)
		return
	}
	state.Session = session
	state.Clock = app.NewTurnClock(state.Config.TurnDuration())
	logger.Info("tryStart: Game %s started on table %s with %d controllers.", session.ID(), state.TableID, len(seating.Controllers()))

	mh.broadcastLobby(state, dispatcher, logger)
	mh.publish(state, dispatcher, logger, events)
}

func (mh *matchHandler) handleAction(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if !state.Started() {
		mh.sendError(state, dispatcher, logger, senderID, domain.ErrWrongPhase)
		return
	}

	action, err := wire.DecodeAction(msg.GetOpCode(), msg.GetData())
	if err != nil {
		logger.Warn("handleAction: User %s sent a malformed action (op %d): %v", senderID, msg.GetOpCode(), err)
		mh.sendError(state, dispatcher, logger, senderID, err)
		return
	}

	events, err := state.Session.Apply(senderID, action)
	if err != nil {
		if domain.IsUserError(err) {
			logger.Warn("handleAction: User %s %s rejected in %s: %v", senderID, app.ActionName(action), state.Session.Phase(), err)
		} else {
			logger.Error("handleAction: User %s %s failed on table %s: %v", senderID, app.ActionName(action), state.TableID, err)
		}
		mh.sendError(state, dispatcher, logger, senderID, err)
		return
	}

	mh.publish(state, dispatcher, logger, events)
}

func (mh *matchHandler) handleSnapshotRequest(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if !state.Started() {
		mh.sendLobby(state, dispatcher, logger, presencesFor(state, []string{senderID}))
		return
	}
	mh.sendSnapshot(state, dispatcher, logger, senderID, presenceInfo(state))
}

// publish sends events in order, then a fresh snapshot to every controller.
func (mh *matchHandler) publish(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	state.Clock.Observe(state.Session, mh.now())
	mh.broadcastSnapshots(state, dispatcher, logger)
	mh.updateLabel(state, dispatcher, logger)
}

// broadcastEvent handles the conversion and dispatching of app events to Nakama.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, dto := wire.EventFromApp(ev)

	// Determine recipients (default to broadcast)
	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		recipients = presencesFor(state, ev.Recipients)
		// Private events with no connected recipient must not fall back to a broadcast.
		if len(recipients) == 0 {
			return
		}
	}
	mh.send(dispatcher, logger, opCode, dto, recipients)
}

func (mh *matchHandler) broadcastSnapshots(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	info := presenceInfo(state)
	for _, controllerID := range state.Session.Controllers() {
		mh.sendSnapshot(state, dispatcher, logger, controllerID, info)
	}
}

func (mh *matchHandler) sendSnapshot(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, controllerID string, info map[string]wire.PresenceInfo) {
	presence, ok := state.Presences[controllerID]
	if !ok {
		return
	}
	dto := wire.SnapshotFromApp(state.Session.Snapshot(controllerID), info)
	if deadline := state.Clock.Deadline(); !deadline.IsZero() {
		dto.TurnDeadline = deadline.Unix()
	}
	mh.send(dispatcher, logger, wire.OpSnapshot, dto, []runtime.Presence{presence})
}

func (mh *matchHandler) broadcastLobby(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	mh.sendLobby(state, dispatcher, logger, nil)
}

func (mh *matchHandler) sendLobby(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, recipients []runtime.Presence) {
	dto := wire.LobbyFromDomain(state.TableID, state.PointsToWin, state.Lobby, state.Started(), presenceInfo(state))
	mh.send(dispatcher, logger, wire.OpLobby, dto, recipients)
}

// sendError sends an ErrorDTO to the offending user only.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, err error) {
	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}
	mh.send(dispatcher, logger, wire.OpError, wire.ErrorFromErr(err), []runtime.Presence{presence})
}

func (mh *matchHandler) send(dispatcher runtime.MatchDispatcher, logger runtime.Logger, opCode int64, v interface{}, recipients []runtime.Presence) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("Failed to marshal message for op %d: %v", opCode, err)
		return
	}
	if err := dispatcher.BroadcastMessage(opCode, data, recipients, nil, true); err != nil {
		logger.Error("Failed to send op %d: %v", opCode, err)
	}
}

func (mh *matchHandler) label(state *MatchState) (string, error) {
	label, err := structpb.NewStruct(map[string]interface{}{
		MatchLabelKey_Game:        matchLabelGame,
		MatchLabelKey_OpenSeats:   state.GetOpenSeatsCount(),
		MatchLabelKey_Phase:       state.phase(),
		MatchLabelKey_PointsToWin: state.PointsToWin,
	})
	if err != nil {
		return "", err
	}
	labelBytes, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(labelBytes), nil
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := mh.label(state)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if label == state.lastLabel {
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
		return
	}
	state.lastLabel = label
}
