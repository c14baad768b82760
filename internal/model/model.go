package model

import "time"

// Room gender tags. A camper can only be Male or Female; Co-ed is a
// property of rooms, never of campers.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderCoed   = "Co-ed"
)

// SessionPreferences are the session labels offered on the public form.
var SessionPreferences = []string{
	"Week 1 (June 1-5)",
	"Week 2 (June 8-12)",
	"Week 3 (June 15-19)",
	"Week 4 (June 22-26)",
	"Full Month",
}

type Room struct {
	ID         string    `db:"id" json:"id"`
	RoomNumber string    `db:"room_number" json:"room_number"`
	Gender     string    `db:"gender" json:"gender"`
	Capacity   int       `db:"capacity" json:"capacity"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type Registration struct {
	ID                    string    `db:"id" json:"id"`
	CamperName            string    `db:"camper_name" json:"camper_name"`
	Age                   int       `db:"age" json:"age"`
	Gender                string    `db:"gender" json:"gender"`
	ParentName            string    `db:"parent_name" json:"parent_name"`
	ParentEmail           string    `db:"parent_email" json:"parent_email"`
	ParentPhone           string    `db:"parent_phone" json:"parent_phone"`
	EmergencyContactName  string    `db:"emergency_contact_name" json:"emergency_contact_name"`
	EmergencyContactPhone string    `db:"emergency_contact_phone" json:"emergency_contact_phone"`
	MedicalConditions     string    `db:"medical_conditions" json:"medical_conditions,omitempty"`
	DietaryRestrictions   string    `db:"dietary_restrictions" json:"dietary_restrictions,omitempty"`
	SessionPreference     string    `db:"session_preference" json:"session_preference"`
	RoomID                *string   `db:"room_id" json:"room_id,omitempty"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
}

// Principal is an authenticated identity. It stands in for the hosted
// auth provider's user record.
type Principal struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Profile maps a principal to its administrator flag. A principal with
// no profile row is an authenticated non-admin.
type Profile struct {
	ID       string `db:"id" json:"id"`
	Email    string `db:"email" json:"email"`
	FullName string `db:"full_name" json:"full_name"`
	IsAdmin  bool   `db:"is_admin" json:"is_admin"`
}
