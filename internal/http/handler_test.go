package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"fines-service/internal/auth"
	"fines-service/internal/http/middleware"
	"fines-service/internal/mailer"
	"fines-service/internal/model"
	"fines-service/internal/repository"
	"fines-service/internal/service"
)

const testSecret = "test-secret"

type stubExtractor struct {
	fields map[string]string
	err    error
}

func (s *stubExtractor) ExtractTicketFields(ctx context.Context, text string) (map[string]string, error) {
	return s.fields, s.err
}

type stubDriverStore struct {
	drivers map[string]*model.Driver
}

func (s *stubDriverStore) GetByPlate(ctx context.Context, plate string) (*model.Driver, error) {
	if d, ok := s.drivers[plate]; ok {
		return d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubTicketStore struct {
	byID       map[uuid.UUID]*model.Ticket
	listResult []model.Ticket
	listErr    error
}

func (s *stubTicketStore) Create(ctx context.Context, ticket *model.Ticket) error {
	if s.byID == nil {
		s.byID = make(map[uuid.UUID]*model.Ticket)
	}
	s.byID[ticket.ID] = ticket
	return nil
}

func (s *stubTicketStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	if t, ok := s.byID[id]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubTicketStore) UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status model.NotificationStatus) error {
	if t, ok := s.byID[id]; ok {
		t.NotificationStatus = status
	}
	return nil
}

func (s *stubTicketStore) List(ctx context.Context, filter repository.TicketListFilter) ([]model.Ticket, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.Ticket
	for _, t := range s.listResult {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

type stubMailer struct {
	err error
}

func (s *stubMailer) SendDriverNotice(to string, notice mailer.Notice) error { return s.err }
func (s *stubMailer) SendAdminNotice(notice mailer.Notice) error             { return s.err }

type stubObjectStore struct {
	err error
}

func (s *stubObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return s.err
}

func (s *stubObjectStore) PublicURL(bucket, key string) string {
	return fmt.Sprintf("https://storage.example.com/%s/%s", bucket, key)
}

type testDeps struct {
	extractor *stubExtractor
	drivers   *stubDriverStore
	tickets   *stubTicketStore
	mail      *stubMailer
	store     *stubObjectStore
}

func newTestRouter(t *testing.T, deps testDeps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if deps.extractor == nil {
		deps.extractor = &stubExtractor{fields: map[string]string{}}
	}
	if deps.drivers == nil {
		deps.drivers = &stubDriverStore{}
	}
	if deps.tickets == nil {
		deps.tickets = &stubTicketStore{}
	}
	if deps.mail == nil {
		deps.mail = &stubMailer{}
	}
	if deps.store == nil {
		deps.store = &stubObjectStore{}
	}

	uploadService := service.NewUploadService(deps.store, zerolog.Nop())
	ticketService := service.NewTicketService(
		deps.extractor,
		deps.drivers,
		deps.tickets,
		deps.mail,
		deps.store,
		"https://pay.example.com/form",
		zerolog.Nop(),
	)

	handler := NewHandler(uploadService, ticketService, zerolog.Nop())
	authMiddleware := middleware.Auth(auth.NewParser(testSecret))
	return NewRouter(handler, authMiddleware, "test")
}

func doJSON(router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func signToken(t *testing.T, secret string) string {
	t.Helper()
	claims := auth.Claims{
		UserID: "ops-user",
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestUploadEndpoint(t *testing.T) {
	t.Run("valid image", func(t *testing.T) {
		router := newTestRouter(t, testDeps{})

		encoded := base64.StdEncoding.EncodeToString([]byte("fake image"))
		w := doJSON(router, http.MethodPost, "/upload", gin.H{"image": encoded}, nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Upload successful", resp["message"])
		assert.NotEmpty(t, resp["file_key"])
	})

	t.Run("invalid base64", func(t *testing.T) {
		router := newTestRouter(t, testDeps{})

		w := doJSON(router, http.MethodPost, "/upload", gin.H{"image": "%%%not base64%%%"}, nil)

		require.Equal(t, http.StatusBadRequest, w.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp["error"])
	})

	t.Run("missing image field", func(t *testing.T) {
		router := newTestRouter(t, testDeps{})

		w := doJSON(router, http.MethodPost, "/upload", gin.H{}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		router := newTestRouter(t, testDeps{store: &stubObjectStore{err: errors.New("bucket down")}})

		encoded := base64.StdEncoding.EncodeToString([]byte("fake image"))
		w := doJSON(router, http.MethodPost, "/upload", gin.H{"image": encoded}, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestProcessEndpoint(t *testing.T) {
	payload := gin.H{"text": "ticket text", "s3_key": "photo.jpg", "s3_bucket": "fine-uploads"}

	t.Run("success returns ticket id", func(t *testing.T) {
		tickets := &stubTicketStore{}
		router := newTestRouter(t, testDeps{
			extractor: &stubExtractor{fields: map[string]string{"licence_plate": "ABC123"}},
			tickets:   tickets,
		})

		w := doJSON(router, http.MethodPost, "/tickets/process", payload, nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Processed successfully", resp["message"])

		id, err := uuid.Parse(resp["ticket_id"])
		require.NoError(t, err)
		require.Contains(t, tickets.byID, id)
		assert.Equal(t, model.TicketStatusPending, tickets.byID[id].Status)
	})

	t.Run("extraction failure still succeeds", func(t *testing.T) {
		tickets := &stubTicketStore{}
		router := newTestRouter(t, testDeps{
			extractor: &stubExtractor{err: errors.New("inference down")},
			tickets:   tickets,
		})

		w := doJSON(router, http.MethodPost, "/tickets/process", payload, nil)

		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, tickets.byID, 1)
		for _, ticket := range tickets.byID {
			assert.Equal(t, service.UnknownValue, ticket.LicencePlate)
		}
	})

	t.Run("notification failure returns server error", func(t *testing.T) {
		tickets := &stubTicketStore{}
		router := newTestRouter(t, testDeps{
			tickets: tickets,
			mail:    &stubMailer{err: errors.New("smtp refused")},
		})

		w := doJSON(router, http.MethodPost, "/tickets/process", payload, nil)

		require.Equal(t, http.StatusInternalServerError, w.Code)
		// Persisted before the notification failed.
		assert.Len(t, tickets.byID, 1)
	})

	t.Run("missing storage locator rejected", func(t *testing.T) {
		router := newTestRouter(t, testDeps{})
		w := doJSON(router, http.MethodPost, "/tickets/process", gin.H{"text": "x"}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPendingEndpoint(t *testing.T) {
	t.Run("returns only pending tickets", func(t *testing.T) {
		tickets := &stubTicketStore{listResult: []model.Ticket{
			{ID: uuid.New(), Status: model.TicketStatusPending},
			{ID: uuid.New(), Status: model.TicketStatusPaid},
			{ID: uuid.New(), Status: model.TicketStatusPending},
		}}
		router := newTestRouter(t, testDeps{tickets: tickets})

		w := doJSON(router, http.MethodGet, "/tickets/pending", nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Tickets []model.Ticket `json:"tickets"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Tickets, 2)
		for _, ticket := range resp.Tickets {
			assert.Equal(t, model.TicketStatusPending, ticket.Status)
		}
	})

	t.Run("query failure", func(t *testing.T) {
		router := newTestRouter(t, testDeps{tickets: &stubTicketStore{listErr: errors.New("scan failed")}})
		w := doJSON(router, http.MethodGet, "/tickets/pending", nil, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestInternalRoutes(t *testing.T) {
	t.Run("rejects missing token", func(t *testing.T) {
		router := newTestRouter(t, testDeps{})
		w := doJSON(router, http.MethodGet, "/internal/tickets", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects token signed with wrong secret", func(t *testing.T) {
		router := newTestRouter(t, testDeps{})
		headers := map[string]string{"Authorization": "Bearer " + signToken(t, "other-secret")}
		w := doJSON(router, http.MethodGet, "/internal/tickets", nil, headers)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("lists tickets with valid token", func(t *testing.T) {
		tickets := &stubTicketStore{listResult: []model.Ticket{{ID: uuid.New(), Status: model.TicketStatusPaid}}}
		router := newTestRouter(t, testDeps{tickets: tickets})

		headers := map[string]string{"Authorization": "Bearer " + signToken(t, testSecret)}
		w := doJSON(router, http.MethodGet, "/internal/tickets", nil, headers)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data []model.Ticket `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Data, 1)
	})

	t.Run("resend notification", func(t *testing.T) {
		ticket := &model.Ticket{
			ID:                 uuid.New(),
			LicencePlate:       "ABC123",
			ImageBucket:        "fine-uploads",
			ImageKey:           "photo.jpg",
			Status:             model.TicketStatusPending,
			NotificationStatus: model.NotificationStatusFailed,
		}
		tickets := &stubTicketStore{byID: map[uuid.UUID]*model.Ticket{ticket.ID: ticket}}
		router := newTestRouter(t, testDeps{tickets: tickets})

		headers := map[string]string{"Authorization": "Bearer " + signToken(t, testSecret)}
		path := fmt.Sprintf("/internal/tickets/%s/resend-notification", ticket.ID)
		w := doJSON(router, http.MethodPost, path, nil, headers)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, model.NotificationStatusSent, ticket.NotificationStatus)

		// A second resend is rejected as already sent.
		w = doJSON(router, http.MethodPost, path, nil, headers)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("resend for unknown ticket", func(t *testing.T) {
		router := newTestRouter(t, testDeps{})
		headers := map[string]string{"Authorization": "Bearer " + signToken(t, testSecret)}
		path := fmt.Sprintf("/internal/tickets/%s/resend-notification", uuid.New())
		w := doJSON(router, http.MethodPost, path, nil, headers)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, testDeps{})
	w := doJSON(router, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
