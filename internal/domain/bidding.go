package domain

const (
	MinBid = 1
	MaxBid = 7
)

// Bid is one seat's bidding action. Amount is zero for a pass.
type Bid struct {
	Seat   int
	Amount int
	Pass   bool
}

// Bidding is a single round of bids starting left of the dealer. Every seat
// acts exactly once and the dealer acts last.
type Bidding struct {
	Dealer   int
	Turn     int
	Bids     []Bid
	High     int
	HighSeat int
	// ForceDealer makes the dealer bid when the other three passed.
	ForceDealer bool
}

// NewBidding opens the round for the seat left of dealer.
func NewBidding(dealer int, forceDealer bool) Bidding {
	return Bidding{
		Dealer:      dealer,
		Turn:        NextSeat(dealer),
		Bids:        []Bid{},
		HighSeat:    -1,
		ForceDealer: forceDealer,
	}
}

// Finished reports whether every seat has acted.
func (b Bidding) Finished() bool {
	return len(b.Bids) >= NumSeats
}

// Winner returns the contract seat and amount once the round is over. ok is
// false while bidding is open or when every seat passed.
func (b Bidding) Winner() (seat, amount int, ok bool) {
	if !b.Finished() || b.HighSeat < 0 {
		return -1, 0, false
	}
	return b.HighSeat, b.High, true
}

// MinimumFor returns the lowest amount seat may bid. The dealer may take the
// contract at the current high bid.
func (b Bidding) MinimumFor(seat int) int {
	if b.High == 0 {
		return MinBid
	}
	if seat == b.Dealer {
		return b.High
	}
	return b.High + 1
}

// CanPass reports whether seat may pass.
func (b Bidding) CanPass(seat int) bool {
	return !(b.ForceDealer && seat == b.Dealer && b.High == 0)
}

// LegalBids lists the amounts seat may bid on its turn.
func (b Bidding) LegalBids(seat int) []int {
	out := []int{}
	if b.Finished() || seat != b.Turn {
		return out
	}
	for amount := b.MinimumFor(seat); amount <= MaxBid; amount++ {
		out = append(out, amount)
	}
	return out
}

// Place applies a bid or pass for seat.
func (b *Bidding) Place(seat, amount int, pass bool) error {
	if !ValidSeat(seat) {
		return ErrSeatOutOfRange
	}
	if b.Finished() {
		return ErrBiddingClosed
	}
	if seat != b.Turn {
		return ErrNotYourTurn
	}
	if pass {
		if !b.CanPass(seat) {
			return ErrMustBid
		}
		b.Bids = append(b.Bids, Bid{Seat: seat, Pass: true})
	} else {
		if amount < MinBid || amount > MaxBid {
			return ErrBidOutOfRange
		}
		if amount < b.MinimumFor(seat) {
			return ErrBidTooLow
		}
		b.Bids = append(b.Bids, Bid{Seat: seat, Amount: amount})
		b.High = amount
		b.HighSeat = seat
	}
	b.Turn = NextSeat(seat)
	return nil
}
