package domain

// MaxSeatsPerController caps how many hands one controller may play.
const MaxSeatsPerController = 3

// Seat is one table position and who plays it.
type Seat struct {
	ControllerID string
	Team         Team
	// HandIndex distinguishes the seats of one controller (0, 1, 2) and is
	// stable for as long as the controller holds the seat.
	HandIndex int
}

// Claimed reports whether a controller sits in the seat.
func (s Seat) Claimed() bool {
	return s.ControllerID != ""
}

// Seating maps the four table positions to controllers and teams.
type Seating [NumSeats]Seat

// Validate checks the only configuration a game may start with: all four
// seats claimed, two per team, at most three seats per controller.
func (st Seating) Validate() error {
	var perTeam [NumTeams]int
	perController := map[string]int{}
	for _, s := range st {
		if !s.Claimed() || !s.Team.Valid() {
			return ErrSeatingIncomplete
		}
		perTeam[s.Team]++
		perController[s.ControllerID]++
	}
	if perTeam[TeamUs] != 2 || perTeam[TeamThem] != 2 {
		return ErrSeatingIncomplete
	}
	for _, n := range perController {
		if n > MaxSeatsPerController {
			return ErrTooManySeats
		}
	}
	return nil
}

// Controllers returns the distinct controllers in order of their first seat.
func (st Seating) Controllers() []string {
	out := []string{}
	seen := map[string]bool{}
	for _, s := range st {
		if s.Claimed() && !seen[s.ControllerID] {
			seen[s.ControllerID] = true
			out = append(out, s.ControllerID)
		}
	}
	return out
}

// SeatsOf returns the seats held by controllerID in table order.
func (st Seating) SeatsOf(controllerID string) []int {
	out := []int{}
	for i, s := range st {
		if controllerID != "" && s.ControllerID == controllerID {
			out = append(out, i)
		}
	}
	return out
}

// Owns reports whether controllerID plays seat.
func (st Seating) Owns(controllerID string, seat int) bool {
	return ValidSeat(seat) && controllerID != "" && st[seat].ControllerID == controllerID
}

// HasController reports whether controllerID holds at least one seat.
func (st Seating) HasController(controllerID string) bool {
	return len(st.SeatsOf(controllerID)) > 0
}

// TeamOf returns the team of seat.
func (st Seating) TeamOf(seat int) Team {
	if !ValidSeat(seat) {
		return TeamNone
	}
	return st[seat].Team
}

// Lobby assembles a Seating before the game starts.
type Lobby struct {
	Seats Seating
	Ready map[string]bool
}

// NewLobby returns an empty lobby.
func NewLobby() *Lobby {
	return &Lobby{Ready: map[string]bool{}}
}

// Claim seats controllerID at seat on team.
func (l *Lobby) Claim(seat int, controllerID string, team Team) error {
	if controllerID == "" {
		return ErrInvalidController
	}
	if !ValidSeat(seat) {
		return ErrSeatOutOfRange
	}
	if !team.Valid() {
		return ErrInvalidTeam
	}
	current := l.Seats[seat]
	if current.Claimed() && current.ControllerID != controllerID {
		return ErrSeatTaken
	}
	held := l.Seats.SeatsOf(controllerID)
	if !current.Claimed() && len(held) >= MaxSeatsPerController {
		return ErrTooManySeats
	}
	onTeam := 0
	for i, s := range l.Seats {
		if i != seat && s.Claimed() && s.Team == team {
			onTeam++
		}
	}
	if onTeam >= 2 {
		return ErrTeamFull
	}

	index := current.HandIndex
	if !current.Claimed() {
		index = l.freeHandIndex(controllerID)
	}
	l.Seats[seat] = Seat{ControllerID: controllerID, Team: team, HandIndex: index}
	delete(l.Ready, controllerID)
	return nil
}

// Release frees seat if controllerID holds it.
func (l *Lobby) Release(seat int, controllerID string) error {
	if !ValidSeat(seat) {
		return ErrSeatOutOfRange
	}
	if l.Seats[seat].ControllerID != controllerID || controllerID == "" {
		return ErrSeatNotHeld
	}
	l.Seats[seat] = Seat{}
	delete(l.Ready, controllerID)
	return nil
}

// RemoveController frees every seat held by controllerID.
func (l *Lobby) RemoveController(controllerID string) bool {
	removed := false
	for _, seat := range l.Seats.SeatsOf(controllerID) {
		l.Seats[seat] = Seat{}
		removed = true
	}
	delete(l.Ready, controllerID)
	return removed
}

// SetReady records whether a seated controller is ready to start.
func (l *Lobby) SetReady(controllerID string, ready bool) error {
	if !l.Seats.HasController(controllerID) {
		return ErrUnknownController
	}
	if ready {
		l.Ready[controllerID] = true
	} else {
		delete(l.Ready, controllerID)
	}
	return nil
}

// OpenSeats counts unclaimed seats.
func (l *Lobby) OpenSeats() int {
	n := 0
	for _, s := range l.Seats {
		if !s.Claimed() {
			n++
		}
	}
	return n
}

// Start returns the finalized seating once every seat is claimed, teams are
// two and two, and every controller is ready.
func (l *Lobby) Start() (Seating, error) {
	if err := l.Seats.Validate(); err != nil {
		return Seating{}, err
	}
	for _, c := range l.Seats.Controllers() {
		if !l.Ready[c] {
			return Seating{}, ErrNotAllReady
		}
	}
	return l.Seats, nil
}

func (l *Lobby) freeHandIndex(controllerID string) int {
	used := map[int]bool{}
	for _, seat := range l.Seats.SeatsOf(controllerID) {
		used[l.Seats[seat].HandIndex] = true
	}
	for i := 0; ; i++ {
		if !used[i] {
			return i
		}
	}
}
