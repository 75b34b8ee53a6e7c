package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"channelsync/internal/domain"
)

// Deliberately conservative defaults for freshly created external rooms: a
// placeholder price nobody books by accident and the fully flexible rate code.
const (
	placeholderRate     = 9999.00
	placeholderRateCode = "RACK-FLEX"
)

// RoomService wires room lifecycle events into the identity map. External
// failures never roll back local room changes.
type RoomService struct {
	mappings  domain.MappingRepository
	configs   domain.ConfigRepository
	inventory domain.InventoryRepository
	client    domain.ChannelClient
}

func NewRoomService(m domain.MappingRepository, c domain.ConfigRepository, inv domain.InventoryRepository, cl domain.ChannelClient) *RoomService {
	return &RoomService{mappings: m, configs: c, inventory: inv, client: cl}
}

// EnsureMapping creates the external counterpart for a freshly created local
// room, best-effort. No active+connected configuration means channel sync is
// simply not set up for the property; skip silently.
func (s *RoomService) EnsureMapping(ctx context.Context, room domain.Room) {
	cfg, err := s.configs.ActiveForProperty(ctx, room.PropertyID)
	if errors.Is(err, domain.ErrNotFound) {
		return
	}
	if err != nil {
		log.Warn().Int64("room", room.ID).Err(err).Msg("config lookup failed, skipping mapping")
		return
	}
	if !cfg.Connected {
		return
	}

	if _, err := s.mappings.GetByRoom(ctx, cfg.ID, room.ID); err == nil {
		return // already mapped
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Int64("room", room.ID).Err(err).Msg("mapping lookup failed, skipping mapping")
		return
	}

	extID, err := s.client.CreateRoom(ctx, cfg, map[string]any{
		"name":      room.Name,
		"rate":      placeholderRate,
		"rate_code": placeholderRateCode,
		"occupancy": 2,
	})
	if err != nil {
		log.Warn().Int64("room", room.ID).Int64("config", cfg.ID).Err(err).
			Msg("external room creation failed, local room kept")
		return
	}

	m := domain.RoomMapping{
		TenantID:         room.TenantID,
		ConfigID:         cfg.ID,
		RoomID:           room.ID,
		ExternalRoomID:   extID,
		ExternalRoomName: room.Name,
		SyncAvailability: true,
		SyncRates:        true,
		SyncRestrictions: true,
		MinOccupancy:     1,
		MaxOccupancy:     2,
		RateMultiplier:   1,
		SyncPending:      true,
		Active:           true,
	}
	if err := s.mappings.Create(ctx, &m); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return // raced with another creation, fine
		}
		log.Warn().Int64("room", room.ID).Err(err).Msg("mapping persist failed")
		return
	}
	log.Info().Int64("room", room.ID).Str("external_room", extID).Msg("room mapped to channel")
}

// DeactivateRoom soft-disables the room's inventory and marks its mappings
// deletion-pending and sync-pending, so the outward removal can still be
// pushed by the orchestrator.
func (s *RoomService) DeactivateRoom(ctx context.Context, roomID int64) error {
	n, err := s.mappings.MarkDeletionPending(ctx, roomID)
	if err != nil {
		return err
	}
	if err := s.inventory.DisableForRoom(ctx, roomID); err != nil {
		return err
	}
	log.Info().Int64("room", roomID).Int64("mappings", n).Msg("room deactivated, removal queued")
	return nil
}
