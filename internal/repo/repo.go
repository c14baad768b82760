package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"campreg/internal/model"
)

var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrPrincipalNotFound    = errors.New("principal not found")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrEmailTaken           = errors.New("email already registered")
)

type Repository interface {
	CreateRoom(ctx context.Context, room *model.Room) (string, error)
	DeleteRoom(ctx context.Context, id string) error
	GetRoomByID(ctx context.Context, id string) (*model.Room, error)
	GetAllRooms(ctx context.Context) ([]model.Room, error)
	RoomsForGender(ctx context.Context, gender string) ([]model.Room, error)
	CountOccupants(ctx context.Context, roomID string) (int, error)

	CreateRegistrationTx(ctx context.Context, reg *model.Registration) (string, string, error)
	AssignRoomTx(ctx context.Context, registrationID string) (string, bool, error)
	GetAllRegistrations(ctx context.Context) ([]model.Registration, error)
	GetUnassignedRegistrations(ctx context.Context) ([]model.Registration, error)

	CreatePrincipal(ctx context.Context, email, passwordHash string) (*model.Principal, error)
	GetPrincipalByEmail(ctx context.Context, email string) (*model.Principal, error)
	DeletePrincipal(ctx context.Context, id string) error
	CreateProfile(ctx context.Context, p *model.Profile) error
	GetProfile(ctx context.Context, principalID string) (*model.Profile, error)

	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations applied successfully from %s", migrationsDir)
	return nil
}

func (r *repository) MigrateDown(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read rollback file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations rolled back successfully from %s", migrationsDir)
	return nil
}

func (r *repository) CreateRoom(ctx context.Context, room *model.Room) (string, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO rooms (id, room_number, gender, capacity)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	row := r.db.QueryRowContext(ctx, query, id, room.RoomNumber, room.Gender, room.Capacity)
	if err := row.Scan(&room.ID); err != nil {
		return "", fmt.Errorf("failed to insert room: %w", err)
	}
	return room.ID, nil
}

func (r *repository) DeleteRoom(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (r *repository) GetRoomByID(ctx context.Context, id string) (*model.Room, error) {
	query := `
		SELECT id, room_number, gender, capacity, created_at
		FROM rooms WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var room model.Room
	if err := row.Scan(&room.ID, &room.RoomNumber, &room.Gender, &room.Capacity, &room.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return &room, nil
}

func (r *repository) GetAllRooms(ctx context.Context) ([]model.Room, error) {
	query := `
		SELECT id, room_number, gender, capacity, created_at
		FROM rooms
		ORDER BY room_number ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get rooms: %w", err)
	}
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		var room model.Room
		if err := rows.Scan(&room.ID, &room.RoomNumber, &room.Gender, &room.Capacity, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

// RoomsForGender lists rooms a camper of the given gender may occupy:
// rooms tagged with the same gender or Co-ed, ordered by room number.
func (r *repository) RoomsForGender(ctx context.Context, gender string) ([]model.Room, error) {
	query := `
		SELECT id, room_number, gender, capacity, created_at
		FROM rooms
		WHERE gender IN ($1, $2)
		ORDER BY room_number ASC
	`

	rows, err := r.db.QueryContext(ctx, query, gender, model.GenderCoed)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate rooms: %w", err)
	}
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		var room model.Room
		if err := rows.Scan(&room.ID, &room.RoomNumber, &room.Gender, &room.Capacity, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

func (r *repository) CountOccupants(ctx context.Context, roomID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM camp_registrations
		WHERE room_id = $1
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, roomID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count occupants: %w", err)
	}

	return count, nil
}

// CreateRegistrationTx inserts a registration and performs first-fit
// room assignment in a single transaction. The candidate rooms are
// locked so that two concurrent submissions cannot both take the last
// bed in a room. Returns the registration id and the assigned room id;
// an empty room id means no compatible room had capacity, which is a
// normal outcome and leaves room_id NULL.
func (r *repository) CreateRegistrationTx(ctx context.Context, reg *model.Registration) (string, string, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	id := uuid.NewString()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO camp_registrations (
			id, camper_name, age, gender,
			parent_name, parent_email, parent_phone,
			emergency_contact_name, emergency_contact_phone,
			medical_conditions, dietary_restrictions, session_preference
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`,
		id, reg.CamperName, reg.Age, reg.Gender,
		reg.ParentName, reg.ParentEmail, reg.ParentPhone,
		reg.EmergencyContactName, reg.EmergencyContactPhone,
		reg.MedicalConditions, reg.DietaryRestrictions, reg.SessionPreference,
	).Scan(&reg.ID)
	if err != nil {
		_ = tx.Rollback()
		return "", "", fmt.Errorf("failed to create registration: %w", err)
	}

	roomID, err := assignFirstFit(ctx, tx, reg.ID, reg.Gender)
	if err != nil {
		_ = tx.Rollback()
		return "", "", err
	}

	if err := tx.Commit(); err != nil {
		return "", "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	if roomID != "" {
		reg.RoomID = &roomID
	}
	return reg.ID, roomID, nil
}

// AssignRoomTx retries first-fit assignment for an existing unassigned
// registration. Used by the reconciler after room changes. The second
// return reports whether a room was assigned.
func (r *repository) AssignRoomTx(ctx context.Context, registrationID string) (string, bool, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var gender string
	var roomID sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT gender, room_id
		FROM camp_registrations
		WHERE id = $1
		FOR UPDATE
	`, registrationID).Scan(&gender, &roomID)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, ErrRegistrationNotFound
		}
		return "", false, fmt.Errorf("failed to select registration: %w", err)
	}
	if roomID.Valid {
		// Already assigned; re-running assignment must be a no-op.
		_ = tx.Rollback()
		return roomID.String, false, nil
	}

	assigned, err := assignFirstFit(ctx, tx, registrationID, gender)
	if err != nil {
		_ = tx.Rollback()
		return "", false, err
	}
	if assigned == "" {
		_ = tx.Rollback()
		return "", false, nil
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return assigned, true, nil
}

// assignFirstFit walks compatible rooms in room-number order inside the
// caller's transaction and writes the first one with spare capacity
// onto the registration. Returns "" when every candidate is full.
func assignFirstFit(ctx context.Context, tx *sql.Tx, registrationID, gender string) (string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, capacity
		FROM rooms
		WHERE gender IN ($1, $2)
		ORDER BY room_number ASC
		FOR UPDATE
	`, gender, model.GenderCoed)
	if err != nil {
		return "", fmt.Errorf("failed to lock candidate rooms: %w", err)
	}

	type candidate struct {
		id       string
		capacity int
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.capacity); err != nil {
			rows.Close()
			return "", fmt.Errorf("failed to scan candidate room: %w", err)
		}
		candidates = append(candidates, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to list candidate rooms: %w", err)
	}

	for _, c := range candidates {
		var occupied int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*)
			FROM camp_registrations
			WHERE room_id = $1
		`, c.id).Scan(&occupied)
		if err != nil {
			return "", fmt.Errorf("failed to count occupants: %w", err)
		}
		if occupied >= c.capacity {
			continue
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE camp_registrations
			SET room_id = $1
			WHERE id = $2
		`, c.id, registrationID)
		if err != nil {
			return "", fmt.Errorf("failed to assign room: %w", err)
		}
		return c.id, nil
	}

	return "", nil
}

func (r *repository) GetAllRegistrations(ctx context.Context) ([]model.Registration, error) {
	query := `
		SELECT id, camper_name, age, gender,
		       parent_name, parent_email, parent_phone,
		       emergency_contact_name, emergency_contact_phone,
		       medical_conditions, dietary_restrictions, session_preference,
		       room_id, created_at
		FROM camp_registrations
		ORDER BY created_at DESC
	`
	return r.queryRegistrations(ctx, query)
}

func (r *repository) GetUnassignedRegistrations(ctx context.Context) ([]model.Registration, error) {
	query := `
		SELECT id, camper_name, age, gender,
		       parent_name, parent_email, parent_phone,
		       emergency_contact_name, emergency_contact_phone,
		       medical_conditions, dietary_restrictions, session_preference,
		       room_id, created_at
		FROM camp_registrations
		WHERE room_id IS NULL
		ORDER BY created_at ASC
	`
	return r.queryRegistrations(ctx, query)
}

func (r *repository) queryRegistrations(ctx context.Context, query string) ([]model.Registration, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		var roomID sql.NullString
		if err := rows.Scan(
			&reg.ID, &reg.CamperName, &reg.Age, &reg.Gender,
			&reg.ParentName, &reg.ParentEmail, &reg.ParentPhone,
			&reg.EmergencyContactName, &reg.EmergencyContactPhone,
			&reg.MedicalConditions, &reg.DietaryRestrictions, &reg.SessionPreference,
			&roomID, &reg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		if roomID.Valid {
			reg.RoomID = &roomID.String
		}
		regs = append(regs, reg)
	}

	return regs, rows.Err()
}

func (r *repository) CreatePrincipal(ctx context.Context, email, passwordHash string) (*model.Principal, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM principals WHERE email = $1)`, email,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	p := &model.Principal{ID: uuid.NewString(), Email: email, PasswordHash: passwordHash}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO principals (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, p.ID, p.Email, p.PasswordHash).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create principal: %w", err)
	}
	return p, nil
}

func (r *repository) GetPrincipalByEmail(ctx context.Context, email string) (*model.Principal, error) {
	query := `
		SELECT id, email, password_hash, created_at
		FROM principals WHERE email = $1
	`
	row := r.db.QueryRowContext(ctx, query, email)

	var p model.Principal
	if err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to get principal: %w", err)
	}
	return &p, nil
}

func (r *repository) DeletePrincipal(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM principals WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete principal: %w", err)
	}
	return nil
}

func (r *repository) CreateProfile(ctx context.Context, p *model.Profile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_profiles (id, email, full_name, is_admin)
		VALUES ($1, $2, $3, $4)
	`, p.ID, p.Email, p.FullName, p.IsAdmin)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r *repository) GetProfile(ctx context.Context, principalID string) (*model.Profile, error) {
	query := `
		SELECT id, email, full_name, is_admin
		FROM admin_profiles WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, principalID)

	var p model.Profile
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.IsAdmin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}
