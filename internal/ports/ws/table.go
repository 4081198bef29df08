package ws

import (
	"encoding/json"
	"sync"
	"time"

	"bidwhist/internal/app"
	"bidwhist/internal/config"
	"bidwhist/internal/domain"
	"bidwhist/internal/ports/wire"

	"github.com/sirupsen/logrus"
)

var (
	ErrTableFull     = &domain.Error{Kind: domain.KindState, Msg: "table full"}
	ErrTableNotFound = &domain.Error{Kind: domain.KindValidation, Msg: "table not found"}
)

// Envelope is every websocket frame in both directions.
type Envelope struct {
	Op   int64           `json:"op"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Table is one game table served over websockets. Everything below mu is
// guarded by it; the read pumps and the server ticker are its only callers.
type Table struct {
	id    string
	cfg   config.TableConfig
	rules domain.Rules
	svc   *app.Service
	log   *logrus.Entry
	now   func() time.Time

	mu         sync.Mutex
	lobby      *domain.Lobby
	session    *app.Session
	clock      *app.TurnClock
	clients    map[string]*client
	names      map[string]string
	emptySince time.Time
	closed     bool
}

func newTable(id string, cfg config.TableConfig, rules domain.Rules, svc *app.Service, log *logrus.Logger, now func() time.Time) *Table {
	return &Table{
		id:      id,
		cfg:     cfg,
		rules:   rules,
		svc:     svc,
		log:     log.WithFields(logrus.Fields{"table": id, "points_to_win": rules.PointsToWin}),
		now:     now,
		lobby:   domain.NewLobby(),
		clients: make(map[string]*client),
		names:   make(map[string]string),
	}
}

// TableInfo is the public listing of a table.
type TableInfo struct {
	ID          string `json:"table_id"`
	PointsToWin int    `json:"points_to_win"`
	Phase       string `json:"phase"`
	OpenSeats   int    `json:"open_seats"`
	Connected   int    `json:"connected"`
}

func (t *Table) Info() TableInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	info := TableInfo{ID: t.id, PointsToWin: t.rules.PointsToWin, Phase: "lobby", Connected: len(t.clients)}
	if t.session != nil {
		info.Phase = string(t.session.Phase())
	} else {
		info.OpenSeats = t.lobby.OpenSeats()
	}
	return info
}

// Closed reports whether the table has ended and can be dropped.
func (t *Table) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// admit checks whether controllerID may connect: anyone while in the lobby,
// only seated controllers once the game runs.
func (t *Table) admit(controllerID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.admitLocked(controllerID)
}

func (t *Table) admitLocked(controllerID string) error {
	if t.closed {
		return app.ErrSessionClosed
	}
	if t.session != nil {
		if !t.seated(controllerID) {
			return domain.ErrGameInProgress
		}
		return nil
	}
	if _, ok := t.clients[controllerID]; !ok && len(t.clients) >= domain.NumSeats {
		return ErrTableFull
	}
	return nil
}

func (t *Table) seated(controllerID string) bool {
	if t.session == nil {
		return t.lobby.Seats.HasController(controllerID)
	}
	for _, c := range t.session.Controllers() {
		if c == controllerID {
			return true
		}
	}
	return false
}

// join registers c. A reconnecting controller replaces its previous
// connection. A refused client is sent the error and closed.
func (t *Table) join(c *client) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.admitLocked(c.id); err != nil {
		t.sendError(c, err)
		c.close()
		return err
	}
	if old, ok := t.clients[c.id]; ok && old != c {
		old.close()
	}
	t.clients[c.id] = c
	t.names[c.id] = c.name
	t.emptySince = time.Time{}
	t.log.WithField("controller", c.id).Info("controller connected")

	t.sendTo(c, wire.OpWelcome, wire.WelcomeDTO{ControllerID: c.id, TableID: t.id, DisplayName: c.name})
	if t.session != nil {
		t.broadcastSnapshots()
	} else {
		t.broadcastLobby()
	}
	return nil
}

// leave drops c. Lobby seats are released; seats in a running game are kept
// for a reconnect.
func (t *Table) leave(c *client) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.clients[c.id] != c {
		return
	}
	delete(t.clients, c.id)
	c.close()
	t.log.WithField("controller", c.id).Info("controller disconnected")

	if t.session == nil {
		delete(t.names, c.id)
		t.lobby.RemoveController(c.id)
		if len(t.clients) == 0 {
			t.closed = true
			return
		}
		t.broadcastLobby()
		return
	}
	if len(t.clients) == 0 {
		t.emptySince = t.now()
	}
	t.broadcastSnapshots()
}

// handle processes one inbound frame from c.
func (t *Table) handle(c *client, env Envelope) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch env.Op {
	case wire.OpClaimSeat, wire.OpReleaseSeat, wire.OpSetReady:
		t.handleLobby(c, env)
	case wire.OpDealerGuess, wire.OpPlaceBid, wire.OpSelectTrump, wire.OpPlayCard, wire.OpReadyForNextHand:
		t.handleAction(c, env)
	case wire.OpRequestSnapshot:
		if t.session == nil {
			t.sendTo(c, wire.OpLobby, t.lobbyDTO())
			return
		}
		t.sendSnapshot(c, t.presenceInfo())
	default:
		t.log.WithField("op", env.Op).Warn("unknown op code")
		t.sendError(c, app.ErrUnknownAction)
	}
}

// reject reports err to c outside of any request handling.
func (t *Table) reject(c *client, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sendError(c, err)
}

func (t *Table) handleLobby(c *client, env Envelope) {
	if t.session != nil {
		t.sendError(c, domain.ErrGameInProgress)
		return
	}

	var err error
	switch env.Op {
	case wire.OpClaimSeat:
		var seat int
		var team domain.Team
		if seat, team, err = wire.DecodeClaimSeat(env.Data); err == nil {
			err = t.lobby.Claim(seat, c.id, team)
		}
	case wire.OpReleaseSeat:
		var seat int
		if seat, err = wire.DecodeReleaseSeat(env.Data); err == nil {
			err = t.lobby.Release(seat, c.id)
		}
	case wire.OpSetReady:
		var ready bool
		if ready, err = wire.DecodeSetReady(env.Data); err == nil {
			err = t.lobby.SetReady(c.id, ready)
		}
	}
	if err != nil {
		t.log.WithFields(logrus.Fields{"controller": c.id, "op": env.Op}).Warnf("lobby request rejected: %v", err)
		t.sendError(c, err)
		return
	}

	t.broadcastLobby()
	t.tryStart()
}

func (t *Table) tryStart() {
	seating, err := t.lobby.Start()
	if err != nil {
		return
	}
	session, events, err := app.NewSession(t.svc, seating, t.rules)
	if err != nil {
		t.log.Errorf("failed to start game: %v", err)
		return
	}
	t.session = session
	t.clock = app.NewTurnClock(t.cfg.TurnDuration())
	t.log.WithField("session", session.ID()).Info("game started")

	t.broadcastLobby()
	t.publish(events)
}

func (t *Table) handleAction(c *client, env Envelope) {
	if t.session == nil {
		t.sendError(c, domain.ErrWrongPhase)
		return
	}
	action, err := wire.DecodeAction(env.Op, env.Data)
	if err != nil {
		t.sendError(c, err)
		return
	}
	events, err := t.session.Apply(c.id, action)
	if err != nil {
		entry := t.log.WithFields(logrus.Fields{"controller": c.id, "action": app.ActionName(action)})
		if domain.IsUserError(err) {
			entry.Warnf("action rejected: %v", err)
		} else {
			entry.Errorf("action failed: %v", err)
		}
		t.sendError(c, err)
		return
	}
	t.publish(events)
}

// tick drives the turn clock and ends a running table nobody is connected to.
func (t *Table) tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil || t.closed {
		return
	}
	now := t.now()
	if timeout := t.cfg.EmptyTableTimeout(); !t.emptySince.IsZero() && timeout > 0 && now.Sub(t.emptySince) >= timeout {
		t.log.Infof("closing table, nobody connected for %s", timeout)
		t.session.Close()
		t.closed = true
		return
	}
	events, err := t.clock.Tick(t.session, now)
	if err != nil {
		t.log.Errorf("turn timeout failed: %v", err)
		return
	}
	if len(events) > 0 {
		t.log.WithField("events", len(events)).Debug("turn timed out")
		t.publish(events)
	}
}

// close disconnects everyone. The table cannot be used afterwards.
func (t *Table) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, c := range t.clients {
		c.close()
		delete(t.clients, id)
	}
	if t.session != nil {
		t.session.Close()
	}
	t.closed = true
}

func (t *Table) publish(events []app.Event) {
	for _, ev := range events {
		op, dto := wire.EventFromApp(ev)
		if len(ev.Recipients) == 0 {
			t.broadcast(op, dto)
			continue
		}
		for _, id := range ev.Recipients {
			if c, ok := t.clients[id]; ok {
				t.sendTo(c, op, dto)
			}
		}
	}
	t.clock.Observe(t.session, t.now())
	t.broadcastSnapshots()
}

func (t *Table) broadcastSnapshots() {
	info := t.presenceInfo()
	for _, id := range t.session.Controllers() {
		if c, ok := t.clients[id]; ok {
			t.sendSnapshot(c, info)
		}
	}
}

func (t *Table) sendSnapshot(c *client, info map[string]wire.PresenceInfo) {
	dto := wire.SnapshotFromApp(t.session.Snapshot(c.id), info)
	if deadline := t.clock.Deadline(); !deadline.IsZero() {
		dto.TurnDeadline = deadline.Unix()
	}
	t.sendTo(c, wire.OpSnapshot, dto)
}

func (t *Table) lobbyDTO() wire.LobbyDTO {
	return wire.LobbyFromDomain(t.id, t.rules.PointsToWin, t.lobby, t.session != nil, t.presenceInfo())
}

func (t *Table) broadcastLobby() {
	t.broadcast(wire.OpLobby, t.lobbyDTO())
}

func (t *Table) presenceInfo() map[string]wire.PresenceInfo {
	out := make(map[string]wire.PresenceInfo, len(t.names))
	for id, name := range t.names {
		_, connected := t.clients[id]
		out[id] = wire.PresenceInfo{DisplayName: name, Connected: connected}
	}
	return out
}

func (t *Table) sendError(c *client, err error) {
	t.sendTo(c, wire.OpError, wire.ErrorFromErr(err))
}

func (t *Table) broadcast(op int64, v interface{}) {
	frame, ok := t.frame(op, v)
	if !ok {
		return
	}
	for _, c := range t.clients {
		c.enqueue(frame)
	}
}

func (t *Table) sendTo(c *client, op int64, v interface{}) {
	if frame, ok := t.frame(op, v); ok {
		c.enqueue(frame)
	}
}

func (t *Table) frame(op int64, v interface{}) ([]byte, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		t.log.Errorf("failed to marshal op %d: %v", op, err)
		return nil, false
	}
	frame, err := json.Marshal(Envelope{Op: op, Data: data})
	if err != nil {
		t.log.Errorf("failed to marshal envelope for op %d: %v", op, err)
		return nil, false
	}
	return frame, true
}
