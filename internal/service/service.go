package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"campreg/internal/allocator"
	"campreg/internal/auth"
	"campreg/internal/dto"
	"campreg/internal/gate"
	"campreg/internal/model"
	"campreg/internal/rabbit"
	"campreg/internal/repo"
	"campreg/pkg/validator"
)

type Service interface {
	Register(ctx *ginext.Context)

	SignUp(ctx *ginext.Context)
	SignIn(ctx *ginext.Context)
	SignOut(ctx *ginext.Context)
	Me(ctx *ginext.Context)

	CreateRoom(ctx *ginext.Context)
	DeleteRoom(ctx *ginext.Context)
	GetRooms(ctx *ginext.Context)
	GetRoomLabel(ctx *ginext.Context)
	GetRegistrations(ctx *ginext.Context)
}

type service struct {
	repo      repo.Repository
	allocator *allocator.Allocator
	gate      *gate.Gate
	provider  *auth.Provider
	log       *zerolog.Logger
	rbt       *rabbit.Client
}

func NewService(repository repo.Repository, alloc *allocator.Allocator, g *gate.Gate, provider *auth.Provider, logger *zerolog.Logger, rbt *rabbit.Client) Service {
	return &service{
		repo:      repository,
		allocator: alloc,
		gate:      g,
		provider:  provider,
		log:       logger,
		rbt:       rbt,
	}
}

// Register handles the public camper form. Room assignment runs inside
// the same transaction as the insert; "no room available" is a normal
// outcome reported as assigned=false.
func (s *service) Register(ctx *ginext.Context) {
	var req dto.CreateRegistrationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.log.Error().Err(err).Msg("failed to parse registration request")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	reg := &model.Registration{
		CamperName:            req.CamperName,
		Age:                   req.Age,
		Gender:                req.Gender,
		ParentName:            req.ParentName,
		ParentEmail:           req.ParentEmail,
		ParentPhone:           req.ParentPhone,
		EmergencyContactName:  req.EmergencyContactName,
		EmergencyContactPhone: req.EmergencyContactPhone,
		MedicalConditions:     req.MedicalConditions,
		DietaryRestrictions:   req.DietaryRestrictions,
		SessionPreference:     req.SessionPreference,
	}

	regID, roomID, err := s.repo.CreateRegistrationTx(ctx.Request.Context(), reg)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create registration")
		dto.InternalServerError(ctx)
		return
	}

	resp := dto.RegistrationResponse{
		ID:                regID,
		CamperName:        reg.CamperName,
		Gender:            reg.Gender,
		SessionPreference: reg.SessionPreference,
		CreatedAt:         time.Now(),
	}
	if roomID != "" {
		resp.Assigned = true
		resp.RoomID = roomID
		if label, ok, err := s.allocator.RoomLabel(ctx.Request.Context(), roomID); err == nil && ok {
			resp.RoomNumber = label
		}
	}

	s.log.Info().
		Str("registration_id", regID).
		Str("room_id", roomID).
		Bool("assigned", resp.Assigned).
		Msg("registration created")

	dto.SuccessCreatedResponse(ctx, resp)
}

func (s *service) SignUp(ctx *ginext.Context) {
	var req dto.SignUpRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	if err := s.gate.SignUp(ctx.Request.Context(), req.Email, req.Password, req.FullName); err != nil {
		switch {
		case errors.Is(err, repo.ErrEmailTaken):
			dto.EmailTakenError(ctx)
		case errors.Is(err, gate.ErrInconsistentAccount):
			s.log.Error().Err(err).Str("email", req.Email).Msg("sign-up left inconsistent account")
			dto.BadResponseError(ctx, dto.AccountInBadState, "Account creation failed; contact support")
		default:
			s.log.Error().Err(err).Msg("sign-up failed")
			dto.InternalServerError(ctx)
		}
		return
	}

	dto.SuccessCreatedResponse(ctx, dto.SessionResponse{Role: gate.RoleAnonymous.String()})
}

func (s *service) SignIn(ctx *ginext.Context) {
	var req dto.SignInRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	token, err := s.gate.SignIn(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			dto.BadResponseError(ctx, dto.AuthFailed, "Invalid email or password")
			return
		}
		s.log.Error().Err(err).Msg("sign-in failed")
		dto.InternalServerError(ctx)
		return
	}

	principalID, _ := s.provider.ParseToken(token)
	role, err := s.gate.ResolveRole(ctx.Request.Context(), principalID)
	if err != nil {
		s.log.Error().Err(err).Msg("role resolution failed after sign-in")
		dto.InternalServerError(ctx)
		return
	}

	dto.SuccessResponse(ctx, dto.SessionResponse{Token: token, Role: role.String()})
}

// SignOut is idempotent: a request with no or an invalid token still
// succeeds and reports the anonymous role.
func (s *service) SignOut(ctx *ginext.Context) {
	if err := s.gate.SignOut(ctx.Request.Context()); err != nil {
		s.log.Error().Err(err).Msg("sign-out failed")
		dto.InternalServerError(ctx)
		return
	}
	dto.SuccessResponse(ctx, dto.SessionResponse{Role: gate.RoleAnonymous.String()})
}

func (s *service) Me(ctx *ginext.Context) {
	var principalID string
	if token := bearerToken(ctx); token != "" {
		if id, err := s.provider.ParseToken(token); err == nil {
			principalID = id
		}
	}

	role, err := s.gate.ResolveRole(ctx.Request.Context(), principalID)
	if err != nil {
		s.log.Error().Err(err).Msg("role resolution failed")
		dto.InternalServerError(ctx)
		return
	}

	dto.SuccessResponse(ctx, dto.SessionResponse{Role: role.String()})
}

func (s *service) CreateRoom(ctx *ginext.Context) {
	var req dto.CreateRoomRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	room := &model.Room{
		RoomNumber: req.RoomNumber,
		Gender:     req.Gender,
		Capacity:   req.Capacity,
		CreatedAt:  time.Now(),
	}

	id, err := s.repo.CreateRoom(ctx.Request.Context(), room)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create room")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Str("room_id", id).Str("room_number", room.RoomNumber).Msg("room created")
	s.publishRoomEvent(room)

	dto.SuccessCreatedResponse(ctx, dto.RoomResponse{
		ID:         id,
		RoomNumber: room.RoomNumber,
		Gender:     room.Gender,
		Capacity:   room.Capacity,
		CreatedAt:  room.CreatedAt,
	})
}

func (s *service) DeleteRoom(ctx *ginext.Context) {
	id := ctx.Param("id")

	room, err := s.repo.GetRoomByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrRoomNotFound) {
			dto.RoomNotFoundError(ctx)
			return
		}
		dto.InternalServerError(ctx)
		return
	}

	if err := s.repo.DeleteRoom(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, repo.ErrRoomNotFound) {
			dto.RoomNotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Str("room_id", id).Msg("failed to delete room")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Str("room_id", id).Msg("room deleted")
	// Deletion unassigns its occupants; the reconciler may re-home
	// them into remaining rooms.
	s.publishRoomEvent(room)

	dto.SuccessResponse(ctx, dto.RoomLabelResponse{ID: id, RoomNumber: room.RoomNumber, Found: true})
}

func (s *service) GetRooms(ctx *ginext.Context) {
	rooms, err := s.repo.GetAllRooms(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list rooms")
		dto.InternalServerError(ctx)
		return
	}

	resp := make([]dto.RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		occupied, err := s.repo.CountOccupants(ctx.Request.Context(), room.ID)
		if err != nil {
			s.log.Error().Err(err).Str("room_id", room.ID).Msg("failed to count occupants")
			dto.InternalServerError(ctx)
			return
		}
		resp = append(resp, dto.RoomResponse{
			ID:         room.ID,
			RoomNumber: room.RoomNumber,
			Gender:     room.Gender,
			Capacity:   room.Capacity,
			Occupied:   occupied,
			CreatedAt:  room.CreatedAt,
		})
	}

	dto.SuccessResponse(ctx, resp)
}

// GetRoomLabel resolves a room id to its room number. A missing room
// is a legitimate state (it may have been deleted after being
// referenced), reported as found=false rather than an error.
func (s *service) GetRoomLabel(ctx *ginext.Context) {
	id := ctx.Param("id")

	label, ok, err := s.allocator.RoomLabel(ctx.Request.Context(), id)
	if err != nil {
		s.log.Error().Err(err).Str("room_id", id).Msg("failed to resolve room label")
		dto.InternalServerError(ctx)
		return
	}

	dto.SuccessResponse(ctx, dto.RoomLabelResponse{ID: id, RoomNumber: label, Found: ok})
}

func (s *service) GetRegistrations(ctx *ginext.Context) {
	regs, err := s.repo.GetAllRegistrations(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list registrations")
		dto.InternalServerError(ctx)
		return
	}

	resp := make([]dto.RegistrationResponse, 0, len(regs))
	for _, reg := range regs {
		item := dto.RegistrationResponse{
			ID:                reg.ID,
			CamperName:        reg.CamperName,
			Gender:            reg.Gender,
			SessionPreference: reg.SessionPreference,
			CreatedAt:         reg.CreatedAt,
		}
		if reg.RoomID != nil {
			item.Assigned = true
			item.RoomID = *reg.RoomID
			if label, ok, err := s.allocator.RoomLabel(ctx.Request.Context(), *reg.RoomID); err == nil && ok {
				item.RoomNumber = label
			}
		}
		resp = append(resp, item)
	}

	dto.SuccessResponse(ctx, resp)
}

func (s *service) publishRoomEvent(room *model.Room) {
	msg := dto.RoomEventMessage{
		RoomID:     room.ID,
		RoomNumber: room.RoomNumber,
		Gender:     room.Gender,
		OccurredAt: time.Now(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal room event")
		return
	}
	if err := s.rbt.Publish(payload); err != nil {
		s.log.Error().Err(err).Msg("failed to publish room event")
	}
}

func bearerToken(ctx *ginext.Context) string {
	header := ctx.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
