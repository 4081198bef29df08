package domain

const (
	MinDealerGuess = 1
	MaxDealerGuess = 100
)

// DealerSelection is the simultaneous guessing round that picks the first
// dealer. A zero guess means the seat has not answered yet.
type DealerSelection struct {
	Guesses  [NumSeats]int
	Target   int
	Dealer   int
	Revealed bool
}

// NewDealerSelection returns a round with no guesses.
func NewDealerSelection() DealerSelection {
	return DealerSelection{Dealer: -1}
}

// Submit records the first guess of seat.
func (d *DealerSelection) Submit(seat, guess int) error {
	if !ValidSeat(seat) {
		return ErrSeatOutOfRange
	}
	if guess < MinDealerGuess || guess > MaxDealerGuess {
		return ErrGuessOutOfRange
	}
	if d.Revealed {
		return ErrWrongPhase
	}
	if d.Guesses[seat] != 0 {
		return ErrAlreadyGuessed
	}
	d.Guesses[seat] = guess
	return nil
}

// Complete reports whether all four seats have guessed.
func (d DealerSelection) Complete() bool {
	return len(d.Pending()) == 0
}

// Pending lists the seats that still owe a guess.
func (d DealerSelection) Pending() []int {
	out := []int{}
	for seat, g := range d.Guesses {
		if g == 0 {
			out = append(out, seat)
		}
	}
	return out
}

// Reveal fixes the target and the chosen dealer.
func (d *DealerSelection) Reveal(target int) int {
	d.Target = target
	d.Dealer = SelectDealer(d.Guesses, target)
	d.Revealed = true
	return d.Dealer
}

// SelectDealer returns the seat whose guess is closest to target. Ties go to
// the lowest seat.
func SelectDealer(guesses [NumSeats]int, target int) int {
	best, bestDiff := 0, -1
	for seat, g := range guesses {
		diff := g - target
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = seat, diff
		}
	}
	return best
}
