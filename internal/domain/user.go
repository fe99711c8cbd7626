package domain

import "time"

// User se crea la primera vez que aparece un display name; nunca se borra.
type User struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name"`
	Online      bool      `json:"online"`
	LastSeen    time.Time `json:"last_seen"`
	CreatedAt   time.Time `json:"created_at"`
}
