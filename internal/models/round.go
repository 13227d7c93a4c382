package models

type GameType string

const (
	GameTypeSlots    GameType = "slots"
	GameTypeCoinflip GameType = "coinflip"
)

type RoundState string

const (
	RoundStateOpen     RoundState = "open"
	RoundStateAwaiting RoundState = "awaiting_settlement"
	RoundStateSettled  RoundState = "settled"
)

type CoinFace string

const (
	CoinFaceHeads CoinFace = "heads"
	CoinFaceTails CoinFace = "tails"
)

// WagerRound covers both games. The stake is debited when the round is
// created; the server seed stays hidden until the round is settled.
type WagerRound struct {
	ID    string   `json:"id" redis:"id"`
	UID   int64    `json:"uid" redis:"uid"`
	Game  GameType `json:"game" redis:"game"`
	Stake float64  `json:"stake" redis:"stake"`

	ServerSeed string `json:"server_seed,omitempty" redis:"server_seed"`
	ServerHash string `json:"server_hash" redis:"server_hash"`
	ClientSeed string `json:"client_seed,omitempty" redis:"client_seed"`

	// Coinflip only.
	Choice  CoinFace `json:"choice,omitempty" redis:"choice"`
	Outcome CoinFace `json:"outcome,omitempty" redis:"outcome"`

	// Slots only: Reels[i] holds the three symbol indexes of reel i,
	// top to bottom. A reel the player has not stopped yet is nil.
	Reels [3][]int `json:"reels,omitempty" redis:"reels"`

	Payout float64    `json:"payout" redis:"payout"`
	State  RoundState `json:"state" redis:"state"`

	CreatedAt int64 `json:"created_at" redis:"created_at"`
	SettledAt int64 `json:"settled_at,omitempty" redis:"settled_at"`
}

func (r *WagerRound) ReelsComplete() bool {
	for _, reel := range r.Reels {
		if len(reel) != 3 {
			return false
		}
	}
	return true
}

// Public returns a copy safe to show before settlement: the commitment is
// visible, the secret is not.
func (r *WagerRound) Public() WagerRound {
	out := *r
	if out.State != RoundStateSettled {
		out.ServerSeed = ""
	}
	return out
}

const ReelCount = 3

// SlotSymbols is the reel alphabet, ordered from most to least frequent.
var SlotSymbols = []string{"cherry", "lemon", "bell", "bar", "coin"}

// SlotWeights sum to 100; weight i is the percentage chance of symbol i
// on a single reel position.
var SlotWeights = []int{40, 30, 15, 10, 5}

// SlotPaytable maps a symbol index to the multiplier paid when one payline
// shows that symbol three times.
var SlotPaytable = map[int]float64{
	4: 50, // coin
	3: 15, // bar
	2: 8,  // bell
	1: 4,  // lemon
	0: 2,  // cherry
}

// SlotPaylines are positions in the 3x3 grid, indexed row*3+col with the
// grid laid out row-major: three rows plus both diagonals. Line wins are
// additive.
var SlotPaylines = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Grid flattens the stopped reels into a row-major 3x3 grid of symbol
// indexes. Reels store columns, so grid[row*3+col] = Reels[col][row].
func (r *WagerRound) Grid() [9]int {
	var grid [9]int
	for col := 0; col < ReelCount; col++ {
		for row := 0; row < 3; row++ {
			grid[row*3+col] = r.Reels[col][row]
		}
	}
	return grid
}

// EvaluatePaylines sums the payout of every matching payline for the given
// grid and stake.
func EvaluatePaylines(grid [9]int, stake float64) float64 {
	total := 0.0
	for _, line := range SlotPaylines {
		a, b, c := grid[line[0]], grid[line[1]], grid[line[2]]
		if a == b && b == c {
			if mult, ok := SlotPaytable[a]; ok {
				total += stake * mult
			}
		}
	}
	return total
}
