package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateTicketCode produces the human-readable code printed on a ticket.
func GenerateTicketCode() string {
	timestamp := time.Now().Unix()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(999999))
	return fmt.Sprintf("tkt_%d_%06d", timestamp, randomNum.Int64())
}
