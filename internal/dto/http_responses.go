package dto

import (
	"time"

	"github.com/wb-go/wbf/ginext"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	RoomNotFound      = "ROOM_NOT_FOUND"
	EmailTaken        = "EMAIL_TAKEN"
	AuthFailed        = "AUTH_FAILED"
	Forbidden         = "FORBIDDEN"
	AccountInBadState = "ACCOUNT_INCONSISTENT"
)

type CreateRegistrationRequest struct {
	CamperName            string `json:"camper_name" validate:"required,min=2,max=255"`
	Age                   int    `json:"age" validate:"required"`
	Gender                string `json:"gender" validate:"required,campergender"`
	ParentName            string `json:"parent_name" validate:"required,max=255"`
	ParentEmail           string `json:"parent_email" validate:"required,email"`
	ParentPhone           string `json:"parent_phone" validate:"required"`
	EmergencyContactName  string `json:"emergency_contact_name" validate:"required"`
	EmergencyContactPhone string `json:"emergency_contact_phone" validate:"required"`
	MedicalConditions     string `json:"medical_conditions"`
	DietaryRestrictions   string `json:"dietary_restrictions"`
	SessionPreference     string `json:"session_preference" validate:"required,campsession"`
}

type RegistrationResponse struct {
	ID                string    `json:"id"`
	CamperName        string    `json:"camper_name"`
	Gender            string    `json:"gender"`
	SessionPreference string    `json:"session_preference"`
	RoomID            string    `json:"room_id,omitempty"`
	RoomNumber        string    `json:"room_number,omitempty"`
	Assigned          bool      `json:"assigned"`
	CreatedAt         time.Time `json:"created_at"`
}

type CreateRoomRequest struct {
	RoomNumber string `json:"room_number" validate:"required,max=32"`
	Gender     string `json:"gender" validate:"required,roomgender"`
	Capacity   int    `json:"capacity" validate:"gt=0"`
}

type RoomResponse struct {
	ID         string    `json:"id"`
	RoomNumber string    `json:"room_number"`
	Gender     string    `json:"gender"`
	Capacity   int       `json:"capacity"`
	Occupied   int       `json:"occupied"`
	CreatedAt  time.Time `json:"created_at"`
}

type RoomLabelResponse struct {
	ID         string `json:"id"`
	RoomNumber string `json:"room_number,omitempty"`
	Found      bool   `json:"found"`
}

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,max=255"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SessionResponse struct {
	Token string `json:"token,omitempty"`
	Role  string `json:"role"`
}

// RoomEventMessage is published when an administrator changes the room
// set; the reconciler consumes it and retries unassigned registrations.
type RoomEventMessage struct {
	RoomID     string    `json:"room_id"`
	RoomNumber string    `json:"room_number"`
	Gender     string    `json:"gender"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

func BadResponseError(c *ginext.Context, code, desc string) {
	c.JSON(400, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(500, Response{
		Status: "error",
		Error: &Error{
			Code: ServiceUnavailable,
			Desc: InternalError,
		},
	})
}

func UnauthorizedError(c *ginext.Context) {
	c.JSON(401, Response{
		Status: "error",
		Error: &Error{
			Code: AuthFailed,
			Desc: "Authentication required",
		},
	})
}

func ForbiddenError(c *ginext.Context) {
	c.JSON(403, Response{
		Status: "error",
		Error: &Error{
			Code: Forbidden,
			Desc: "Administrator access required",
		},
	})
}

func RoomNotFoundError(c *ginext.Context) {
	BadResponseError(c, RoomNotFound, "Room not found")
}

func EmailTakenError(c *ginext.Context) {
	BadResponseError(c, EmailTaken, "This email is already registered")
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(200, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(201, Response{
		Status: "ok",
		Data:   data,
	})
}
