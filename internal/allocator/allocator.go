// Package allocator implements first-fit room assignment for campers.
//
// Candidate rooms are those tagged with the camper's gender or Co-ed,
// walked in room-number order; the first room with spare capacity wins.
// The allocator only reads: writing the chosen room onto a registration
// is the caller's job (the repository does both atomically for real
// submissions, this package serves query paths and the reconciler's
// candidate choice).
package allocator

import (
	"context"
	"errors"

	"campreg/internal/model"
	"campreg/internal/repo"
)

// Store is the slice of the repository the allocator needs.
type Store interface {
	RoomsForGender(ctx context.Context, gender string) ([]model.Room, error)
	CountOccupants(ctx context.Context, roomID string) (int, error)
	GetRoomByID(ctx context.Context, id string) (*model.Room, error)
}

type Allocator struct {
	store Store
}

func New(store Store) *Allocator {
	return &Allocator{store: store}
}

// AssignRoom returns the id of the first compatible room with spare
// capacity for a camper of the given gender. ok is false when no
// compatible room has space; that is a normal outcome, not an error.
func (a *Allocator) AssignRoom(ctx context.Context, gender string) (string, bool, error) {
	rooms, err := a.store.RoomsForGender(ctx, gender)
	if err != nil {
		return "", false, err
	}

	for _, room := range rooms {
		occupied, err := a.store.CountOccupants(ctx, room.ID)
		if err != nil {
			return "", false, err
		}
		if occupied < room.Capacity {
			return room.ID, true, nil
		}
	}

	return "", false, nil
}

// RoomLabel resolves a room id to its human-readable room number.
// ok is false when no such room exists; a room deleted after being
// referenced is a legitimate state, not an error.
func (a *Allocator) RoomLabel(ctx context.Context, roomID string) (string, bool, error) {
	room, err := a.store.GetRoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repo.ErrRoomNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return room.RoomNumber, true, nil
}
