package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// Cliente de terminal del chat. Una goroutine sondea el feed con cursor
// avanzante a intervalo fijo; el hilo principal es el REPL de envío.
const (
	pollInterval   = 1500 * time.Millisecond
	chunkSize      = 10 << 20 // 10 MB por chunk
	maxPollRetries = 5
	backoffBase    = time.Second
)

type client struct {
	baseURL string
	http    *http.Client
	token   string
	userID  int64
}

type feedRow struct {
	ID         int64  `json:"id"`
	AuthorName string `json:"author_name"`
	Text       string `json:"text"`
	FilePath   string `json:"file_path"`
	Kind       string `json:"kind"`
	IsOwn      bool   `json:"is_own"`
}

type attachment struct {
	Path         string `json:"file_path"`
	OriginalName string `json:"original_file_name"`
	MimeType     string `json:"file_mime_type"`
}

func main() {
	baseURL := os.Getenv("CHAT_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Display name: ")
	name, _ := reader.ReadString('\n')

	c := &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}

	if err := c.login(strings.TrimSpace(name)); err != nil {
		log.Fatalf("login: %v", err)
	}
	if err := c.presence("online"); err != nil {
		log.Printf("presence online: %v", err)
	}

	go c.pollLoop()

	fmt.Println("Connected. Type a message, /upload <path> to send a file, /quit to leave.")
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "/quit":
			// Fire-and-forget, como el unload de la página.
			_ = c.presence("offline")
			return
		case strings.HasPrefix(line, "/upload "):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/upload "))
			att, err := c.uploadFile(path)
			if err != nil {
				fmt.Printf("upload failed: %v\n", err)
				continue
			}
			if err := c.send("", att); err != nil {
				fmt.Printf("send failed: %v\n", err)
			}
		default:
			if err := c.send(line, nil); err != nil {
				fmt.Printf("send failed: %v\n", err)
			}
		}
	}
}

// pollLoop sondea el feed a intervalo fijo con un guard contra ciclos
// superpuestos. Los fallos se reintentan con backoff exponencial acotado;
// agotados los intentos, el polling se detiene.
func (c *client) pollLoop() {
	var afterID int64
	var inFlight atomic.Bool

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for range ticker.C {
		if !inFlight.CompareAndSwap(false, true) {
			continue
		}

		policy := backoff.WithMaxRetries(newPollBackoff(), maxPollRetries)
		err := backoff.Retry(func() error {
			for {
				rows, err := c.fetchFeed(afterID)
				if err != nil {
					return err
				}
				for _, row := range rows {
					printRow(row)
					afterID = row.ID
				}
				// Página llena: hay más backlog, drenar ya.
				if len(rows) < 100 {
					return nil
				}
			}
		}, policy)
		inFlight.Store(false)

		if err != nil {
			fmt.Printf("\nfeed unavailable after %d retries: %v\npolling stopped, restart to reconnect\n", maxPollRetries, err)
			return
		}
	}
}

func newPollBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = backoffBase
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return b
}

func printRow(row feedRow) {
	switch {
	case row.Kind == "system":
		fmt.Printf("*** %s\n", row.Text)
	case row.IsOwn:
		// Lo propio ya se vio al escribirlo.
	default:
		text := row.Text
		if row.FilePath != "" {
			text = strings.TrimSpace(text + " [file: " + row.FilePath + "]")
		}
		fmt.Printf("<%s> %s\n", row.AuthorName, text)
	}
}

func (c *client) login(displayName string) error {
	body, _ := json.Marshal(map[string]string{"display_name": displayName})
	resp, err := c.http.Post(c.baseURL+"/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login rejected: %s", resp.Status)
	}

	var out struct {
		Token string `json:"token"`
		User  struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	c.token = out.Token
	c.userID = out.User.ID
	return nil
}

func (c *client) send(text string, att *attachment) error {
	payload := map[string]interface{}{"text": text}
	if att != nil {
		payload["attachment"] = att
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	return c.doJSON(req, nil)
}

func (c *client) presence(status string) error {
	body, _ := json.Marshal(map[string]string{"status": status})
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/presence", bytes.NewReader(body))
	if err != nil {
		return err
	}
	return c.doJSON(req, nil)
}

func (c *client) fetchFeed(afterID int64) ([]feedRow, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/feed?after_id=%d", c.baseURL, afterID), nil)
	if err != nil {
		return nil, err
	}
	var rows []feedRow
	if err := c.doJSON(req, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// uploadFile parte el archivo en chunks de tamaño fijo y los sube en
// orden, uno por vez: el chunk n+1 recién sale cuando el n fue aceptado.
// Esa secuencialidad es lo que mantiene correcto el orden de índices.
func (c *client) uploadFile(path string) (*attachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	totalChunks := int((info.Size() + chunkSize - 1) / chunkSize)
	if totalChunks == 0 {
		totalChunks = 1
	}

	uploadID := uuid.NewString()
	name := filepath.Base(path)
	buf := make([]byte, chunkSize)

	for index := 1; index <= totalChunks; index++ {
		n, err := io.ReadFull(f, buf)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return nil, err
		}

		finalPath, err := c.sendChunk(uploadID, index, totalChunks, name, buf[:n])
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", index, totalChunks, err)
		}
		if index == totalChunks {
			mimeType := mime.TypeByExtension(filepath.Ext(name))
			if mimeType == "" {
				mimeType = "application/octet-stream"
			}
			return &attachment{Path: finalPath, OriginalName: name, MimeType: mimeType}, nil
		}
	}
	return nil, fmt.Errorf("upload never finalized")
}

func (c *client) sendChunk(uploadID string, index, total int, name string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("chunk_bytes", name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	_ = writer.WriteField("chunk_index", fmt.Sprintf("%d", index))
	_ = writer.WriteField("total_chunks", fmt.Sprintf("%d", total))
	_ = writer.WriteField("original_filename", name)
	_ = writer.WriteField("upload_id", uploadID)
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/upload_chunk", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out struct {
		FinalPath string `json:"final_path"`
	}
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}
	return out.FinalPath, nil
}

func (c *client) doJSON(req *http.Request, out interface{}) error {
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
