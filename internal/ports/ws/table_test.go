package ws

import (
	"encoding/json"
	"io"
	"math/rand"
	"testing"
	"time"

	"bidwhist/internal/app"
	"bidwhist/internal/config"
	"bidwhist/internal/domain"
	"bidwhist/internal/ports/wire"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testConfig() config.TableConfig {
	cfg := config.Default()
	cfg.TurnDurationSeconds = 5
	cfg.EmptyTableTimeoutSeconds = 30
	return cfg
}

type tableHarness struct {
	t       *testing.T
	table   *Table
	now     time.Time
	clients map[string]*client
}

func newTableHarness(t *testing.T) *tableHarness {
	h := &tableHarness{t: t, now: time.Unix(1700000000, 0), clients: map[string]*client{}}
	cfg := testConfig()
	rules, err := cfg.Rules(0)
	require.NoError(t, err)
	svc := app.NewService(rand.New(rand.NewSource(7)))
	h.table = newTable("table-1", cfg, rules, svc, quietLogger(), func() time.Time { return h.now })
	return h
}

func (h *tableHarness) join(ids ...string) {
	for _, id := range ids {
		c := newClient(id, "Player "+id, nil)
		h.clients[id] = c
		require.NoError(h.t, h.table.join(c))
	}
}

func (h *tableHarness) leave(ids ...string) {
	for _, id := range ids {
		h.table.leave(h.clients[id])
	}
}

func (h *tableHarness) send(id string, op int64, v interface{}) {
	h.t.Helper()
	var data json.RawMessage
	if v != nil {
		raw, err := json.Marshal(v)
		require.NoError(h.t, err)
		data = raw
	}
	h.table.handle(h.clients[id], Envelope{Op: op, Data: data})
}

// drain returns everything queued for id since the last drain.
func (h *tableHarness) drain(id string) []Envelope {
	h.t.Helper()
	var out []Envelope
	c := h.clients[id]
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return out
			}
			var env Envelope
			require.NoError(h.t, json.Unmarshal(frame, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func (h *tableHarness) drainAll() {
	for id := range h.clients {
		h.drain(id)
	}
}

func ofOp(envs []Envelope, op int64) []Envelope {
	var out []Envelope
	for _, e := range envs {
		if e.Op == op {
			out = append(out, e)
		}
	}
	return out
}

func (h *tableHarness) lastSnapshot(envs []Envelope) wire.SnapshotDTO {
	h.t.Helper()
	snaps := ofOp(envs, wire.OpSnapshot)
	require.NotEmpty(h.t, snaps, "no snapshot sent")
	var snap wire.SnapshotDTO
	require.NoError(h.t, json.Unmarshal(snaps[len(snaps)-1].Data, &snap))
	return snap
}

func (h *tableHarness) seatEveryone() {
	h.t.Helper()
	h.join("a", "b", "c")
	h.send("a", wire.OpClaimSeat, wire.ClaimSeatRequest{Seat: 0, Team: "us"})
	h.send("b", wire.OpClaimSeat, wire.ClaimSeatRequest{Seat: 1, Team: "them"})
	h.send("a", wire.OpClaimSeat, wire.ClaimSeatRequest{Seat: 2, Team: "us"})
	h.send("c", wire.OpClaimSeat, wire.ClaimSeatRequest{Seat: 3, Team: "them"})
	for _, id := range []string{"a", "b", "c"} {
		h.send(id, wire.OpSetReady, nil)
	}
	require.NotNil(h.t, h.table.session, "game should start once everyone is ready")
}

func TestTable_JoinSendsWelcomeAndLobby(t *testing.T) {
	h := newTableHarness(t)
	h.join("a")

	envs := h.drain("a")
	require.Len(t, envs, 2)
	assert.Equal(t, wire.OpWelcome, envs[0].Op)
	var welcome wire.WelcomeDTO
	require.NoError(t, json.Unmarshal(envs[0].Data, &welcome))
	assert.Equal(t, wire.WelcomeDTO{ControllerID: "a", TableID: "table-1", DisplayName: "Player a"}, welcome)

	assert.Equal(t, wire.OpLobby, envs[1].Op)
	var lobby wire.LobbyDTO
	require.NoError(t, json.Unmarshal(envs[1].Data, &lobby))
	assert.Equal(t, domain.NumSeats, lobby.OpenSeats)
	assert.False(t, lobby.Started)
}

func TestTable_AdmitCapsLobbyAndRunningGame(t *testing.T) {
	h := newTableHarness(t)
	h.join("a", "b", "c", "d")
	assert.ErrorIs(t, h.table.admit("e"), ErrTableFull)
	assert.NoError(t, h.table.admit("a"), "a connected controller may reconnect")

	h = newTableHarness(t)
	h.seatEveryone()
	assert.ErrorIs(t, h.table.admit("stranger"), domain.ErrGameInProgress)
	assert.NoError(t, h.table.admit("b"))
}

func TestTable_LobbyRejectionGoesToOffenderOnly(t *testing.T) {
	h := newTableHarness(t)
	h.join("a", "b")
	h.send("a", wire.OpClaimSeat, wire.ClaimSeatRequest{Seat: 0, Team: "us"})
	h.drainAll()

	h.send("b", wire.OpClaimSeat, wire.ClaimSeatRequest{Seat: 0, Team: "them"})

	assert.Empty(t, h.drain("a"))
	envs := h.drain("b")
	require.Len(t, envs, 1)
	assert.Equal(t, wire.OpError, envs[0].Op)
	var dto wire.ErrorDTO
	require.NoError(t, json.Unmarshal(envs[0].Data, &dto))
	assert.Equal(t, 422, dto.Code)
}

func TestTable_UnknownOpIsRejected(t *testing.T) {
	h := newTableHarness(t)
	h.join("a")
	h.drain("a")

	h.send("a", 999, nil)

	envs := h.drain("a")
	require.Len(t, envs, 1)
	assert.Equal(t, wire.OpError, envs[0].Op)
}

func TestTable_LeaveInLobbyFreesSeatsAndCloses(t *testing.T) {
	h := newTableHarness(t)
	h.join("a", "b")
	h.send("a", wire.OpClaimSeat, wire.ClaimSeatRequest{Seat: 0, Team: "us"})
	h.leave("a")

	assert.Equal(t, domain.NumSeats, h.table.lobby.OpenSeats())
	assert.False(t, h.table.Closed())

	h.leave("b")
	assert.True(t, h.table.Closed())
}

func TestTable_GameStartAndPrivateHands(t *testing.T) {
	h := newTableHarness(t)
	h.seatEveryone()

	for _, id := range []string{"a", "b", "c"} {
		snap := h.lastSnapshot(h.drain(id))
		assert.Equal(t, id, snap.Viewer)
		assert.Equal(t, string(domain.PhaseDealerSelection), snap.Phase)
		assert.Equal(t, h.now.Add(5*time.Second).Unix(), snap.TurnDeadline)
	}

	for seat := 0; seat < domain.NumSeats; seat++ {
		owner := h.table.session.Snapshot("").Seats[seat].ControllerID
		h.send(owner, wire.OpDealerGuess, wire.ActionDTO{Seat: seat, Value: 30 + seat})
	}
	require.Equal(t, domain.PhaseBidding, h.table.session.Phase())

	envs := h.drain("b")
	assert.Len(t, ofOp(envs, wire.OpDealerReveal), 1)
	dealt := 0
	for _, e := range ofOp(envs, wire.OpEvent) {
		var ev struct {
			Type string             `json:"type"`
			Data wire.HandDealtData `json:"data"`
		}
		require.NoError(t, json.Unmarshal(e.Data, &ev))
		if ev.Type != "hand_dealt" {
			continue
		}
		dealt++
		assert.Contains(t, ev.Data.Hands, 1)
		assert.NotContains(t, ev.Data.Hands, 0)
	}
	assert.Equal(t, 1, dealt, "b should see only its own deal")

	snap := h.lastSnapshot(envs)
	assert.Len(t, snap.Seats[1].Hand, domain.HandSize)
	assert.Empty(t, snap.Seats[0].Hand)
}

func TestTable_RejectedActionLeavesState(t *testing.T) {
	h := newTableHarness(t)
	h.seatEveryone()
	h.drainAll()
	version := h.table.session.Version()

	h.send("b", wire.OpPlaceBid, wire.ActionDTO{Seat: 1, Amount: 3})

	assert.Equal(t, version, h.table.session.Version())
	assert.Empty(t, h.drain("a"))
	envs := h.drain("b")
	require.Len(t, envs, 1)
	var dto wire.ErrorDTO
	require.NoError(t, json.Unmarshal(envs[0].Data, &dto))
	assert.Equal(t, string(domain.KindState), dto.Kind)

	h.send("b", wire.OpClaimSeat, wire.ClaimSeatRequest{Seat: 1, Team: "them"})
	assert.Len(t, ofOp(h.drain("b"), wire.OpError), 1)
}

func TestTable_ReconnectKeepsSeat(t *testing.T) {
	h := newTableHarness(t)
	h.seatEveryone()
	h.leave("b")

	snap := h.lastSnapshot(h.drain("a"))
	assert.False(t, snap.Seats[1].Connected)

	h.join("b")
	snap = h.lastSnapshot(h.drain("b"))
	assert.Equal(t, "b", snap.Viewer)
	assert.True(t, snap.Seats[1].Connected)
	assert.Equal(t, "Player b", snap.Seats[1].DisplayName)

	h.drainAll()
	h.send("c", wire.OpRequestSnapshot, nil)
	assert.Empty(t, h.drain("a"))
	assert.Len(t, h.drain("c"), 1)
}

func TestTable_ReconnectReplacesOldConnection(t *testing.T) {
	h := newTableHarness(t)
	h.join("a")
	old := h.clients["a"]
	h.join("a")

	assert.True(t, old.closed)
	h.table.leave(old)
	assert.False(t, h.table.Closed(), "a stale connection must not drop its replacement")
}

func TestTable_TickForcesTimedOutTurn(t *testing.T) {
	h := newTableHarness(t)
	h.seatEveryone()
	version := h.table.session.Version()

	h.now = h.now.Add(2 * time.Second)
	h.table.tick()
	assert.Equal(t, version, h.table.session.Version(), "clock fired early")

	h.drainAll()
	h.now = h.now.Add(4 * time.Second)
	h.table.tick()
	assert.Equal(t, domain.PhaseBidding, h.table.session.Phase())
	assert.NotEmpty(t, ofOp(h.drain("a"), wire.OpSnapshot))
}

func TestTable_EmptyRunningTableCloses(t *testing.T) {
	h := newTableHarness(t)
	h.seatEveryone()
	h.leave("a", "b", "c")
	assert.False(t, h.table.Closed(), "running table should wait for reconnects")

	h.now = h.now.Add(10 * time.Second)
	h.table.tick()
	assert.False(t, h.table.Closed())

	h.now = h.now.Add(25 * time.Second)
	h.table.tick()
	assert.True(t, h.table.Closed())
	assert.ErrorIs(t, h.table.admit("a"), app.ErrSessionClosed)
}

func TestTable_Info(t *testing.T) {
	h := newTableHarness(t)
	h.join("a")
	assert.Equal(t, TableInfo{ID: "table-1", PointsToWin: 21, Phase: "lobby", OpenSeats: 4, Connected: 1}, h.table.Info())

	h = newTableHarness(t)
	h.seatEveryone()
	info := h.table.Info()
	assert.Equal(t, string(domain.PhaseDealerSelection), info.Phase)
	assert.Zero(t, info.OpenSeats)
}

func TestTable_JoinRechecksCapacity(t *testing.T) {
	h := newTableHarness(t)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, h.table.admit(id), "all admitted before anyone joined")
	}
	h.join("a", "b", "c", "d")

	late := newClient("e", "Player e", nil)
	h.clients["e"] = late
	assert.ErrorIs(t, h.table.join(late), ErrTableFull)

	envs := h.drain("e")
	require.Len(t, envs, 1)
	assert.Equal(t, wire.OpError, envs[0].Op)
	assert.True(t, late.closed)
	assert.Equal(t, 4, h.table.Info().Connected)
}

func TestTable_JoinRefusesStrangerOnceRunning(t *testing.T) {
	h := newTableHarness(t)
	h.seatEveryone()

	stranger := newClient("stranger", "Stranger", nil)
	h.clients["stranger"] = stranger
	assert.ErrorIs(t, h.table.join(stranger), domain.ErrGameInProgress)
	assert.True(t, stranger.closed)
}
