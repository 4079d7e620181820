package evaluator

// Contender pairs a seat with its evaluated hand.
type Contender struct {
	Seat int
	Rank HandRank
}

// DetermineWinners returns the seats holding the best hand among the
// contenders, in seat order. Every contender tying with the best hand
// wins, which is how multi-way split pots arise.
func DetermineWinners(contenders []Contender) []int {
	if len(contenders) == 0 {
		return nil
	}

	best := contenders[0].Rank
	for _, c := range contenders[1:] {
		if Compare(c.Rank, best) > 0 {
			best = c.Rank
		}
	}

	winners := make([]int, 0, len(contenders))
	for _, c := range contenders {
		if Compare(c.Rank, best) == 0 {
			winners = append(winners, c.Seat)
		}
	}
	return winners
}

// DistributePot splits pot chips evenly among the winning seats. When
// the pot does not divide evenly, the remainder goes to the earliest
// winning seat in seat order. The policy is arbitrary but fixed, so
// settlement is reproducible; winners must be in seat order, as
// DetermineWinners returns them.
func DistributePot(winners []int, pot int) map[int]int {
	if len(winners) == 0 || pot <= 0 {
		return map[int]int{}
	}

	share := pot / len(winners)
	remainder := pot % len(winners)

	payouts := make(map[int]int, len(winners))
	for _, seat := range winners {
		payouts[seat] = share
	}
	payouts[winners[0]] += remainder
	return payouts
}
