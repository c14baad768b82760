package allocator

import (
	"context"
	"errors"
	"sort"
	"testing"

	"campreg/internal/model"
	"campreg/internal/repo"
)

type fakeStore struct {
	rooms     []model.Room
	occupancy map[string]int
	listErr   error
	countErr  error
}

func newFakeStore(rooms ...model.Room) *fakeStore {
	return &fakeStore{rooms: rooms, occupancy: make(map[string]int)}
}

func (f *fakeStore) RoomsForGender(ctx context.Context, gender string) ([]model.Room, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Room
	for _, r := range f.rooms {
		if r.Gender == gender || r.Gender == model.GenderCoed {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomNumber < out[j].RoomNumber })
	return out, nil
}

func (f *fakeStore) CountOccupants(ctx context.Context, roomID string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.occupancy[roomID], nil
}

func (f *fakeStore) GetRoomByID(ctx context.Context, id string) (*model.Room, error) {
	for _, r := range f.rooms {
		if r.ID == id {
			room := r
			return &room, nil
		}
	}
	return nil, repo.ErrRoomNotFound
}

func TestAssignRoomCapacityRespected(t *testing.T) {
	const capacity = 3
	const requests = 5

	store := newFakeStore(model.Room{ID: "r1", RoomNumber: "101", Gender: model.GenderMale, Capacity: capacity})
	a := New(store)
	ctx := context.Background()

	var assigned, unassigned int
	for i := 0; i < requests; i++ {
		roomID, ok, err := a.AssignRoom(ctx, model.GenderMale)
		if err != nil {
			t.Fatalf("AssignRoom failed: %v", err)
		}
		if ok {
			assigned++
			// The caller writes the assignment back; mirror that here.
			store.occupancy[roomID]++
		} else {
			unassigned++
		}
	}

	if assigned != capacity {
		t.Errorf("expected exactly %d assignments, got %d", capacity, assigned)
	}
	if unassigned != requests-capacity {
		t.Errorf("expected %d unassigned, got %d", requests-capacity, unassigned)
	}
}

func TestAssignRoomGenderCompatibility(t *testing.T) {
	store := newFakeStore(
		model.Room{ID: "f1", RoomNumber: "101", Gender: model.GenderFemale, Capacity: 10},
		model.Room{ID: "c1", RoomNumber: "102", Gender: model.GenderCoed, Capacity: 10},
	)
	a := New(store)
	ctx := context.Background()

	roomID, ok, err := a.AssignRoom(ctx, model.GenderMale)
	if err != nil {
		t.Fatalf("AssignRoom failed: %v", err)
	}
	if !ok {
		t.Fatal("expected the co-ed room to be eligible for a male camper")
	}
	if roomID != "c1" {
		t.Errorf("male camper must never land in a female-only room, got %q", roomID)
	}

	roomID, ok, err = a.AssignRoom(ctx, model.GenderFemale)
	if err != nil {
		t.Fatalf("AssignRoom failed: %v", err)
	}
	if !ok || roomID != "f1" {
		t.Errorf("female camper should get room f1 (label order), got %q ok=%v", roomID, ok)
	}
}

func TestAssignRoomDeterministic(t *testing.T) {
	store := newFakeStore(
		model.Room{ID: "b", RoomNumber: "202", Gender: model.GenderMale, Capacity: 2},
		model.Room{ID: "a", RoomNumber: "201", Gender: model.GenderMale, Capacity: 2},
	)
	a := New(store)
	ctx := context.Background()

	first, ok, err := a.AssignRoom(ctx, model.GenderMale)
	if err != nil || !ok {
		t.Fatalf("AssignRoom failed: ok=%v err=%v", ok, err)
	}
	for i := 0; i < 10; i++ {
		got, ok, err := a.AssignRoom(ctx, model.GenderMale)
		if err != nil || !ok {
			t.Fatalf("AssignRoom failed on repeat %d: ok=%v err=%v", i, ok, err)
		}
		if got != first {
			t.Fatalf("assignment not deterministic: got %q then %q", first, got)
		}
	}
	if first != "a" {
		t.Errorf("expected lowest room number first, got %q", first)
	}
}

func TestAssignRoomFirstFitScenario(t *testing.T) {
	// Rooms: 101 (Male, cap 1), 102 (Co-ed, cap 1). Three male campers:
	// first fills 101, second overflows into 102, third gets nothing.
	store := newFakeStore(
		model.Room{ID: "r1", RoomNumber: "101", Gender: model.GenderMale, Capacity: 1},
		model.Room{ID: "r2", RoomNumber: "102", Gender: model.GenderCoed, Capacity: 1},
	)
	a := New(store)
	ctx := context.Background()

	want := []struct {
		roomID string
		ok     bool
	}{
		{"r1", true},
		{"r2", true},
		{"", false},
	}

	for i, expect := range want {
		roomID, ok, err := a.AssignRoom(ctx, model.GenderMale)
		if err != nil {
			t.Fatalf("camper %d: AssignRoom failed: %v", i, err)
		}
		if ok != expect.ok || roomID != expect.roomID {
			t.Errorf("camper %d: got (%q, %v), want (%q, %v)", i, roomID, ok, expect.roomID, expect.ok)
		}
		if ok {
			store.occupancy[roomID]++
		}
	}
}

func TestAssignRoomNoCandidates(t *testing.T) {
	a := New(newFakeStore())

	roomID, ok, err := a.AssignRoom(context.Background(), model.GenderFemale)
	if err != nil {
		t.Fatalf("empty room set must not be an error, got %v", err)
	}
	if ok || roomID != "" {
		t.Errorf("expected no assignment, got (%q, %v)", roomID, ok)
	}
}

func TestAssignRoomPropagatesStoreErrors(t *testing.T) {
	store := newFakeStore(model.Room{ID: "r1", RoomNumber: "101", Gender: model.GenderMale, Capacity: 1})
	a := New(store)

	store.listErr = errors.New("listing failed")
	if _, _, err := a.AssignRoom(context.Background(), model.GenderMale); !errors.Is(err, store.listErr) {
		t.Errorf("expected listing error to propagate, got %v", err)
	}

	store.listErr = nil
	store.countErr = errors.New("count failed")
	if _, _, err := a.AssignRoom(context.Background(), model.GenderMale); !errors.Is(err, store.countErr) {
		t.Errorf("expected count error to propagate, got %v", err)
	}
}

func TestRoomLabel(t *testing.T) {
	store := newFakeStore(model.Room{ID: "r1", RoomNumber: "101", Gender: model.GenderMale, Capacity: 1})
	a := New(store)
	ctx := context.Background()

	label, ok, err := a.RoomLabel(ctx, "r1")
	if err != nil || !ok || label != "101" {
		t.Errorf("RoomLabel(r1) = (%q, %v, %v), want (101, true, nil)", label, ok, err)
	}

	label, ok, err = a.RoomLabel(ctx, "nonexistent-id")
	if err != nil {
		t.Fatalf("missing room must not be an error, got %v", err)
	}
	if ok || label != "" {
		t.Errorf("RoomLabel(nonexistent-id) = (%q, %v), want not found", label, ok)
	}
}
