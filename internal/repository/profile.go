package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/xo-arena-backend/internal/entity"
)

var ErrProfileNotFound = errors.New("profile not found")

// balance updates are optimistic; retry a few times before giving up.
const maxDeltaRetries = 5

type ProfileRepository interface {
	GetOrCreate(ctx context.Context, id string) (*entity.Profile, error)
	GetByID(ctx context.Context, id string) (*entity.Profile, error)
	ApplyDelta(ctx context.Context, id string, delta entity.BalanceDelta) (*entity.Profile, error)
}

type dbProfile struct {
	client *redis.Client
}

func NewProfileRepository(client *redis.Client) ProfileRepository {
	return &dbProfile{
		client: client,
	}
}

func profileKey(id string) string {
	return "profile:" + id
}

func (that *dbProfile) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	response, err := that.client.Get(ctx, profileKey(id)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrProfileNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get profile by ID: %w", err)
	}

	var existingProfile entity.Profile
	if err = json.Unmarshal([]byte(response), &existingProfile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}

	return &existingProfile, nil
}

func (that *dbProfile) GetOrCreate(ctx context.Context, id string) (*entity.Profile, error) {
	existingProfile, err := that.GetByID(ctx, id)
	if err == nil {
		return existingProfile, nil
	}

	if !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}

	newProfile := &entity.Profile{ID: id}

	profileJSON, err := json.Marshal(newProfile)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}

	created, err := that.client.SetNX(ctx, profileKey(id), profileJSON, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	if !created {
		return that.GetByID(ctx, id)
	}

	return newProfile, nil
}

// ApplyDelta runs the read-modify-write under an optimistic WATCH transaction
// so concurrent adjustments to the same profile never lose an update.
func (that *dbProfile) ApplyDelta(ctx context.Context, id string, delta entity.BalanceDelta) (*entity.Profile, error) {
	key := profileKey(id)

	var updatedProfile *entity.Profile

	txn := func(tx *redis.Tx) error {
		profile := &entity.Profile{ID: id}

		response, err := tx.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("failed to get profile: %w", err)
		}

		if err == nil {
			if err = json.Unmarshal([]byte(response), profile); err != nil {
				return fmt.Errorf("failed to unmarshal profile: %w", err)
			}
		}

		profile.Apply(delta)

		profileJSON, err := json.Marshal(profile)
		if err != nil {
			return fmt.Errorf("failed to marshal profile: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, profileJSON, 0)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to set profile: %w", err)
		}

		updatedProfile = profile

		return nil
	}

	for attempt := 0; attempt < maxDeltaRetries; attempt++ {
		err := that.client.Watch(ctx, txn, key)
		if err == nil {
			return updatedProfile, nil
		}

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		return nil, fmt.Errorf("failed to apply balance delta: %w", err)
	}

	return nil, fmt.Errorf("failed to apply balance delta: %w", redis.TxFailedErr)
}
