package pkg

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateMatchID - returns a short random identifier for a new match.
func GenerateMatchID() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate match id: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
