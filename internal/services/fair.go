package services

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"spinbet-backend/internal/models"
)

// Commitment is one round's server secret plus its public hash. The hash is
// shown to the player up front; the seed stays hidden until settlement so
// the player can verify the outcome was fixed before their input.
type Commitment struct {
	ServerSeed string
	ServerHash string
}

func NewCommitment() Commitment {
	bytes := make([]byte, 32) // 256 bits of entropy
	if _, err := rand.Read(bytes); err != nil {
		// crypto/rand never fails on a working platform; a broken entropy
		// source is not something we can recover from at this level.
		panic(fmt.Sprintf("entropy source unavailable: %v", err))
	}
	seed := hex.EncodeToString(bytes)
	return Commitment{ServerSeed: seed, ServerHash: HashSeed(seed)}
}

func HashSeed(serverSeed string) string {
	hash := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(hash[:])
}

func VerifyCommitment(serverSeed, serverHash string) bool {
	return HashSeed(serverSeed) == serverHash
}

// deriveUint32 keys an HMAC-SHA256 with the server seed, hashes the
// domain-tagged message and folds the first 8 hex chars into a number.
// Same seed pair and message always gives the same value.
func deriveUint32(serverSeed, message string) uint32 {
	h := hmac.New(sha256.New, []byte(serverSeed))
	h.Write([]byte(message))
	digest := hex.EncodeToString(h.Sum(nil))

	value, err := strconv.ParseUint(digest[:8], 16, 64)
	if err != nil {
		panic(fmt.Sprintf("malformed hmac digest %q: %v", digest[:8], err))
	}
	return uint32(value)
}

// DeriveCoinFace maps the derived value's parity onto the coin: even is
// heads, odd is tails.
func DeriveCoinFace(serverSeed, clientSeed string) models.CoinFace {
	value := deriveUint32(serverSeed, "flip:"+clientSeed)
	if value%2 == 0 {
		return models.CoinFaceHeads
	}
	return models.CoinFaceTails
}

// DeriveReelStops returns the three symbol indexes of one reel, top to
// bottom, each picked from the weighted alphabet.
func DeriveReelStops(serverSeed, clientSeed string, reel int) []int {
	stops := make([]int, 3)
	for row := 0; row < 3; row++ {
		message := fmt.Sprintf("reel:%s:%d:%d", clientSeed, reel, row)
		stops[row] = weightedPick(deriveUint32(serverSeed, message))
	}
	return stops
}

func weightedPick(value uint32) int {
	point := int(value % 100)
	acc := 0
	for i, weight := range models.SlotWeights {
		acc += weight
		if point < acc {
			return i
		}
	}
	return 0
}
