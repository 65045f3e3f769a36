package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"

	"github.com/skip2/go-qrcode"

	"ms-events/internal/models"
)

// Generator encodes an encrypted ticket payload into a QR PNG. The gate
// scanner holds the same secret and verifies the payload offline.
type Generator struct {
	secret []byte
}

func NewGenerator(secret string) *Generator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &Generator{secret: hashed[:]}
}

type ticketPayload struct {
	TicketID     string  `json:"ticket_id"`
	Code         string  `json:"code"`
	UserID       int64   `json:"user_id"`
	EventVenueID int64   `json:"event_venue_id"`
	TotalPrice   float64 `json:"total_price"`
}

func (g *Generator) EncryptedTicketQR(ticket models.Ticket) ([]byte, error) {
	data, err := json.Marshal(ticketPayload{
		TicketID:     ticket.ID,
		Code:         ticket.Code,
		UserID:       ticket.UserID,
		EventVenueID: ticket.EventVenueID,
		TotalPrice:   ticket.TotalPrice,
	})
	if err != nil {
		return nil, err
	}

	encrypted, err := encryptAES(data, g.secret)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}
