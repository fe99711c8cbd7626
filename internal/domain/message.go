package domain

import "time"

// MessageKind distingue mensajes de usuario de mensajes de sistema.
type MessageKind string

const (
	KindUser   MessageKind = "user"
	KindSystem MessageKind = "system"
)

// Attachment describe el archivo adjunto de un mensaje, si existe.
type Attachment struct {
	Path         string `json:"file_path"`
	OriginalName string `json:"original_file_name"`
	MimeType     string `json:"file_mime_type"`
}

// Message es una fila inmutable del log de chat. El ID lo asigna el store
// al insertar y es estrictamente creciente: es el cursor del feed.
type Message struct {
	ID         int64       `json:"id"`
	AuthorID   int64       `json:"author_id"`
	AuthorName string      `json:"author_name,omitempty"`
	Text       string      `json:"text"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Kind       MessageKind `json:"kind"`
	CreatedAt  time.Time   `json:"created_at"`
}
