package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"group-chat/internal/domain"
)

// MessageRepository es el contrato del log append-only de mensajes.
// Append devuelve el id asignado por el store; ListAfter pagina por cursor.
type MessageRepository interface {
	Append(ctx context.Context, message domain.Message) (int64, error)
	ListAfter(ctx context.Context, afterID int64, limit int) ([]domain.Message, error)
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

// Append inserta la fila y devuelve el id BIGSERIAL. La asignación del id
// ocurre dentro del INSERT: es el único punto de serialización del orden
// del feed, incluso con senders concurrentes.
func (r *PgMessageRepository) Append(ctx context.Context, message domain.Message) (int64, error) {
	const query = `
		INSERT INTO messages (author_id, message_text, file_path, original_file_name, file_mime_type, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var text interface{}
	if message.Text != "" {
		text = message.Text
	}
	var filePath, originalName, mimeType interface{}
	if message.Attachment != nil {
		filePath = message.Attachment.Path
		originalName = message.Attachment.OriginalName
		mimeType = message.Attachment.MimeType
	}

	var id int64
	err := r.pool.QueryRow(ctx, query,
		message.AuthorID,
		text,
		filePath,
		originalName,
		mimeType,
		string(message.Kind),
		message.CreatedAt,
	).Scan(&id)
	return id, err
}

// ListAfter devuelve las filas con id > afterID en orden ascendente,
// truncadas a limit. El caller ya validó los parámetros.
func (r *PgMessageRepository) ListAfter(ctx context.Context, afterID int64, limit int) ([]domain.Message, error) {
	const query = `
		SELECT m.id, m.author_id, u.display_name, m.message_text, m.file_path, m.original_file_name, m.file_mime_type, m.kind, m.created_at
		FROM messages m
		JOIN users u ON m.author_id = u.id
		WHERE m.id > $1
		ORDER BY m.id ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var text, filePath, originalName, mimeType, kind *string

		err = rows.Scan(
			&msg.ID,
			&msg.AuthorID,
			&msg.AuthorName,
			&text,
			&filePath,
			&originalName,
			&mimeType,
			&kind,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if text != nil {
			msg.Text = *text
		}
		if filePath != nil {
			att := domain.Attachment{Path: *filePath}
			if originalName != nil {
				att.OriginalName = *originalName
			}
			if mimeType != nil {
				att.MimeType = *mimeType
			}
			msg.Attachment = &att
		}
		// Filas viejas pueden tener kind NULL; el default es "user".
		msg.Kind = domain.KindUser
		if kind != nil && *kind != "" {
			msg.Kind = domain.MessageKind(*kind)
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
