// Seat holds in Redis. A hold marks a seat as taken for the selection
// window so concurrent pickers fail fast; the booking transaction in the
// database remains the authority. Holds expire by TTL on their own.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

type Redis struct {
	Client  *redis.Client
	HoldTTL time.Duration
	Logger  *log.Logger
}

func NewRedis(client *redis.Client, holdTTL time.Duration) *Redis {
	if holdTTL <= 0 {
		holdTTL = 5 * time.Minute
	}
	return &Redis{
		Client:  client,
		HoldTTL: holdTTL,
		Logger:  log.Default(),
	}
}

func holdKey(seatID int64) string {
	return fmt.Sprintf("seat_hold:%d", seatID)
}

// HoldSeat takes a hold on a single seat for the booking attempt.
func (r *Redis) HoldSeat(seatID int64, ticketID string) (bool, error) {
	return r.Client.SetNX(context.Background(), holdKey(seatID), ticketID, r.HoldTTL).Result()
}

// ReleaseHold drops the hold only if it still belongs to this booking
// attempt. A hold that expired or was never taken is already released.
func (r *Redis) ReleaseHold(seatID int64, ticketID string) error {
	ctx := context.Background()
	key := holdKey(seatID)

	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if val == ticketID {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}

// HoldSeats takes holds on the whole selection, releasing every hold taken
// so far when any single one fails.
func (r *Redis) HoldSeats(seatIDs []int64, ticketID string) (bool, error) {
	held := []int64{}
	for _, seatID := range seatIDs {
		ok, err := r.HoldSeat(seatID, ticketID)
		if err != nil || !ok {
			for _, h := range held {
				if relErr := r.ReleaseHold(h, ticketID); relErr != nil {
					r.Logger.Printf("REDIS: releasing hold on seat %d failed: %v", h, relErr)
				}
			}
			return false, err
		}
		held = append(held, seatID)
	}
	return true, nil
}

// ReleaseHolds drops the holds for a failed booking attempt.
func (r *Redis) ReleaseHolds(seatIDs []int64, ticketID string) error {
	var firstErr error
	for _, seatID := range seatIDs {
		if err := r.ReleaseHold(seatID, ticketID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
