package httptransport

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"securetransfer/internal/platform/middleware"
	"securetransfer/internal/ratelimit"
	"securetransfer/internal/transfer"
	"securetransfer/internal/transport/http/mocks"
	"securetransfer/pkg/testutil"
)

type tokenTable map[string]string

func (t tokenTable) ValidateToken(token string) (*middleware.IdentityClaims, error) {
	identity, ok := t[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return &middleware.IdentityClaims{Identity: identity}, nil
}

// =============================================================================
// Transfer Handler Test Suite
// =============================================================================
// Justification for unit tests: status-code mapping and multipart parsing live
// only in the transport layer.

type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = NewRouter(New(s.service, logger, WithMaxUploadBytes(1<<10)), RouterConfig{
		Validator: tokenTable{"alice-token": "alice", "bob-token": "bob"},
		Logger:    logger,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
	})
}

func (s *HandlerSuite) pending(id uuid.UUID) *transfer.Transfer {
	return &transfer.Transfer{
		ID:               id,
		Sender:           "alice",
		Receiver:         "bob",
		OriginalFileName: "hello.txt",
		Status:           transfer.StatusPending,
		CreatedAt:        time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (s *HandlerSuite) TestInitiate() {
	s.Run("accepted", func() {
		id := uuid.New()
		s.service.EXPECT().Initiate(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, req transfer.InitiateRequest) (*transfer.Transfer, <-chan transfer.Outcome, error) {
				s.Equal("alice", req.Sender)
				s.Equal("bob", req.Receiver)
				s.Equal("hello.txt", req.FileName)
				s.Equal("hello world", string(req.Content))
				return s.pending(id), nil, nil
			})

		req := testutil.NewUploadRequest(s.T(), "/transfers", "hello.txt", []byte("hello world"), map[string]string{"receiver": "bob"})
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "alice-token"))

		testutil.AssertStatus(s.T(), rr, http.StatusAccepted)
		resp := testutil.UnmarshalResponse[InitiateResponse](s.T(), rr)
		s.Equal(id.String(), resp.ID)
		s.Equal("File transfer initiated", resp.Message)
	})

	s.Run("missing file", func() {
		req := testutil.NewUploadRequest(s.T(), "/transfers", "", nil, map[string]string{"receiver": "bob"})
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "alice-token"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("not multipart", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/transfers")
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "alice-token"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("upload too large", func() {
		big := []byte(strings.Repeat("x", 4<<10))
		req := testutil.NewUploadRequest(s.T(), "/transfers", "big.bin", big, map[string]string{"receiver": "bob"})
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "alice-token"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusRequestEntityTooLarge, "payload_too_large")
	})

	s.Run("service rejects input", func() {
		s.service.EXPECT().Initiate(gomock.Any(), gomock.Any()).
			Return(nil, nil, transfer.ErrInvalidInput)
		req := testutil.NewUploadRequest(s.T(), "/transfers", "a.txt", []byte("a"), nil)
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "alice-token"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("unauthenticated", func() {
		req := testutil.NewUploadRequest(s.T(), "/transfers", "a.txt", []byte("a"), map[string]string{"receiver": "bob"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})
}

func (s *HandlerSuite) TestStatus() {
	id := uuid.New()

	s.Run("participant sees the record", func() {
		t := s.pending(id)
		completedAt := t.CreatedAt.Add(time.Second)
		t.Status = transfer.StatusFailed
		t.FailureKind = transfer.KindReplayDetected
		t.FailureReason = "ReplayDetected during handshake: nonce already used"
		t.CompletedAt = &completedAt
		s.service.EXPECT().Status(gomock.Any(), id, "bob").Return(t, nil)

		req := testutil.NewRequest(s.T(), http.MethodGet, "/transfers/"+id.String())
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "bob-token"))

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[TransferResponse](s.T(), rr)
		s.Equal("FAILED", resp.Status)
		s.Equal("ReplayDetected", resp.FailureKind)
		s.Equal("hello.txt", resp.OriginalFileName)
		s.NotNil(resp.CompletedAt)
	})

	s.Run("outsider is forbidden", func() {
		s.service.EXPECT().Status(gomock.Any(), id, "alice").Return(nil, transfer.ErrForbidden)
		req := testutil.NewRequest(s.T(), http.MethodGet, "/transfers/"+id.String())
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "alice-token"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("unknown transfer", func() {
		s.service.EXPECT().Status(gomock.Any(), id, "alice").Return(nil, transfer.ErrNotFound)
		req := testutil.NewRequest(s.T(), http.MethodGet, "/transfers/"+id.String())
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "alice-token"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("malformed id", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/transfers/not-a-uuid")
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "alice-token"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("store failure hides details", func() {
		s.service.EXPECT().Status(gomock.Any(), id, "alice").Return(nil, errors.New("connection refused"))
		req := testutil.NewRequest(s.T(), http.MethodGet, "/transfers/"+id.String())
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "alice-token"))
		testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
		s.NotContains(rr.Body.String(), "connection refused")
	})
}

func (s *HandlerSuite) TestContent() {
	id := uuid.New()

	s.Run("receiver downloads", func() {
		t := s.pending(id)
		t.Status = transfer.StatusCompleted
		s.service.EXPECT().DecryptedContent(gomock.Any(), id, "bob").Return(t, []byte("hello world"), nil)

		req := testutil.NewRequest(s.T(), http.MethodGet, "/transfers/"+id.String()+"/content")
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "bob-token"))

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Equal("hello world", rr.Body.String())
		s.Equal("application/octet-stream", rr.Header().Get("Content-Type"))
		s.Contains(rr.Header().Get("Content-Disposition"), "hello.txt")
	})

	s.Run("not completed", func() {
		s.service.EXPECT().DecryptedContent(gomock.Any(), id, "bob").Return(nil, nil, transfer.ErrNotCompleted)
		req := testutil.NewRequest(s.T(), http.MethodGet, "/transfers/"+id.String()+"/content")
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "bob-token"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "not_completed")
	})

	s.Run("sender is forbidden", func() {
		s.service.EXPECT().DecryptedContent(gomock.Any(), id, "alice").Return(nil, nil, transfer.ErrForbidden)
		req := testutil.NewRequest(s.T(), http.MethodGet, "/transfers/"+id.String()+"/content")
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "alice-token"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})
}

func (s *HandlerSuite) TestOpenEndpoints() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/health"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/metrics"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.Contains(rr.Body.String(), "# metrics")
}

func (s *HandlerSuite) TestUploadsAreThrottledPerIdentity() {
	router := NewRouter(New(s.service, nil), RouterConfig{
		Validator:     tokenTable{"alice-token": "alice", "bob-token": "bob"},
		UploadLimiter: ratelimit.NewLimiter(1, time.Minute),
	})
	s.service.EXPECT().Initiate(gomock.Any(), gomock.Any()).Return(s.pending(uuid.New()), nil, nil).Times(2)

	upload := func(token string) int {
		req := testutil.NewUploadRequest(s.T(), "/transfers", "a.txt", []byte("a"), map[string]string{"receiver": "bob"})
		return testutil.DoRequest(router, testutil.WithBearer(req, token)).Code
	}
	s.Equal(http.StatusAccepted, upload("alice-token"))
	s.Equal(http.StatusTooManyRequests, upload("alice-token"))
	s.Equal(http.StatusAccepted, upload("bob-token"))
}

func (s *HandlerSuite) TestHandlerWithoutIdentity() {
	h := New(s.service, nil)
	req := testutil.NewUploadRequest(s.T(), "/transfers", "a.txt", []byte("a"), map[string]string{"receiver": "bob"})
	rr := testutil.DoRequest(http.HandlerFunc(h.HandleInitiate), req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")

	rr = testutil.DoRequest(http.HandlerFunc(h.HandleInitiate), testutil.WithIdentity(
		testutil.NewUploadRequest(s.T(), "/transfers", "", nil, nil), "alice"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}
