package httptransport

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"securetransfer/internal/platform/middleware"
	"securetransfer/internal/transfer"
)

// DefaultMaxUploadBytes bounds the multipart body of POST /transfers.
const DefaultMaxUploadBytes int64 = 32 << 20

// Service is the transfer layer the handlers delegate to.
type Service interface {
	Initiate(ctx context.Context, req transfer.InitiateRequest) (*transfer.Transfer, <-chan transfer.Outcome, error)
	Status(ctx context.Context, id uuid.UUID, caller string) (*transfer.Transfer, error)
	DecryptedContent(ctx context.Context, id uuid.UUID, caller string) (*transfer.Transfer, []byte, error)
}

// Handler wires transfer endpoints to the transfer service.
type Handler struct {
	service        Service
	logger         *slog.Logger
	maxUploadBytes int64
}

type Option func(*Handler)

func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		service:        service,
		logger:         logger,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Register mounts transfer endpoints on the router. The router must already
// authenticate callers. upload wraps only POST /transfers.
func (h *Handler) Register(r chi.Router, upload ...func(http.Handler) http.Handler) {
	r.With(upload...).Post("/transfers", h.HandleInitiate)
	r.Get("/transfers/{id}", h.HandleStatus)
	r.Get("/transfers/{id}/content", h.HandleContent)
}

// HandleInitiate handles POST /transfers. The body is multipart with a "file"
// part and a "receiver" field; the sender is the authenticated caller.
func (h *Handler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	sender := middleware.GetIdentity(ctx)
	if sender == "" {
		writeError(w, errUnauthenticated)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, errTooLarge)
			return
		}
		writeError(w, badRequest("request must be multipart/form-data"))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, badRequest("file is required"))
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, badRequest("file could not be read"))
		return
	}

	t, _, err := h.service.Initiate(ctx, transfer.InitiateRequest{
		Sender:   sender,
		Receiver: r.FormValue("receiver"),
		FileName: header.Filename,
		Content:  content,
		Client:   middleware.GetClient(ctx),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "transfer initiation rejected",
			"request_id", requestID,
			"sender", sender,
			"error", err,
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, InitiateResponse{
		ID:      t.ID.String(),
		Message: "File transfer initiated",
	})
}

// HandleStatus handles GET /transfers/{id}.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := transferID(w, r)
	if !ok {
		return
	}
	t, err := h.service.Status(ctx, id, middleware.GetIdentity(ctx))
	if err != nil {
		h.logFailure(ctx, "transfer status lookup failed", id, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromTransfer(t))
}

// HandleContent handles GET /transfers/{id}/content and streams the decrypted file.
func (h *Handler) HandleContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := transferID(w, r)
	if !ok {
		return
	}
	t, data, err := h.service.DecryptedContent(ctx, id, middleware.GetIdentity(ctx))
	if err != nil {
		h.logFailure(ctx, "transfer content lookup failed", id, err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": t.OriginalFileName}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logFailure(ctx, "failed to write transfer content", id, err)
	}
}

func (h *Handler) logFailure(ctx context.Context, msg string, id uuid.UUID, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"transfer_id", id.String(),
		"caller", middleware.GetIdentity(ctx),
		"error", err,
	)
}

func transferID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, badRequest("transfer id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// InitiateResponse is returned from POST /transfers.
type InitiateResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// TransferResponse is the status view of a transfer.
type TransferResponse struct {
	ID               string     `json:"id"`
	Sender           string     `json:"sender"`
	Receiver         string     `json:"receiver"`
	OriginalFileName string     `json:"original_file_name"`
	Status           string     `json:"status"`
	FailureKind      string     `json:"failure_kind,omitempty"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

func FromTransfer(t *transfer.Transfer) TransferResponse {
	return TransferResponse{
		ID:               t.ID.String(),
		Sender:           t.Sender,
		Receiver:         t.Receiver,
		OriginalFileName: t.OriginalFileName,
		Status:           string(t.Status),
		FailureKind:      string(t.FailureKind),
		FailureReason:    t.FailureReason,
		CreatedAt:        t.CreatedAt,
		CompletedAt:      t.CompletedAt,
	}
}
