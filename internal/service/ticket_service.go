package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"fines-service/internal/mailer"
	"fines-service/internal/model"
	"fines-service/internal/repository"
	"fines-service/internal/utils"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

// UnknownValue is substituted for every field the extraction cannot resolve.
const UnknownValue = "UNKNOWN"

// extractedFieldNames is the fixed field set the inference call is asked for.
var extractedFieldNames = []string{
	"licence_plate",
	"issue_date",
	"reference_number",
	"price",
	"location",
	"authority",
	"driver_name",
	"address",
}

type FieldExtractor interface {
	ExtractTicketFields(ctx context.Context, text string) (map[string]string, error)
}

type DriverStore interface {
	GetByPlate(ctx context.Context, plate string) (*model.Driver, error)
}

type TicketStore interface {
	Create(ctx context.Context, ticket *model.Ticket) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
	UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status model.NotificationStatus) error
	List(ctx context.Context, filter repository.TicketListFilter) ([]model.Ticket, error)
}

type Mailer interface {
	SendDriverNotice(to string, notice mailer.Notice) error
	SendAdminNotice(notice mailer.Notice) error
}

type ImageURLBuilder interface {
	PublicURL(bucket, key string) string
}

// TicketService runs the ingestion pipeline: field extraction, driver
// lookup, persistence, notification. Extraction and lookup failures are
// absorbed into fallback values; persistence and notification failures
// abort the request.
type TicketService struct {
	extractor      FieldExtractor
	drivers        DriverStore
	tickets        TicketStore
	mailer         Mailer
	urls           ImageURLBuilder
	paymentFormURL string
	log            zerolog.Logger
}

func NewTicketService(
	extractor FieldExtractor,
	drivers DriverStore,
	tickets TicketStore,
	m Mailer,
	urls ImageURLBuilder,
	paymentFormURL string,
	log zerolog.Logger,
) *TicketService {
	return &TicketService{
		extractor:      extractor,
		drivers:        drivers,
		tickets:        tickets,
		mailer:         m,
		urls:           urls,
		paymentFormURL: paymentFormURL,
		log:            log,
	}
}

type ProcessInput struct {
	Text     string
	S3Bucket string
	S3Key    string
}

func (s *TicketService) Process(ctx context.Context, input ProcessInput) (*model.Ticket, error) {
	fields, err := s.extractor.ExtractTicketFields(ctx, input.Text)
	if err != nil {
		s.log.Warn().Err(err).Msg("field extraction failed, falling back to UNKNOWN values")
		fields = nil
	}
	fields = withUnknownDefaults(fields)

	driver := s.resolveDriver(ctx, fields["licence_plate"])

	driverName := UnknownValue
	driverEmail := UnknownValue
	if driver != nil {
		driverName = driver.DriverName
		if driver.Email != "" {
			driverEmail = driver.Email
		}
	}

	extracted := make(datatypes.JSONMap, len(fields))
	for k, v := range fields {
		extracted[k] = v
	}

	ticket := &model.Ticket{
		ID:                 uuid.New(),
		LicencePlate:       fields["licence_plate"],
		IssueDate:          fields["issue_date"],
		ReferenceNumber:    fields["reference_number"],
		Price:              fields["price"],
		Location:           fields["location"],
		Authority:          fields["authority"],
		Address:            fields["address"],
		DriverName:         driverName,
		DriverEmail:        driverEmail,
		ImageBucket:        input.S3Bucket,
		ImageKey:           input.S3Key,
		ImagePath:          fmt.Sprintf("s3://%s/%s", input.S3Bucket, input.S3Key),
		Status:             model.TicketStatusPending,
		NotificationStatus: model.NotificationStatusPending,
		ExtractedFields:    extracted,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("persist ticket: %w", err)
	}

	s.log.Info().
		Str("ticket_id", ticket.ID.String()).
		Str("plate", ticket.LicencePlate).
		Bool("driver_found", driver != nil).
		Msg("ticket persisted")

	if err := s.notify(ctx, ticket, driver); err != nil {
		return nil, err
	}

	return ticket, nil
}

// resolveDriver looks up the registered driver for a raw extracted plate.
// An empty or UNKNOWN plate skips the lookup; lookup errors are absorbed to
// "no driver" so the pipeline always reaches persistence.
func (s *TicketService) resolveDriver(ctx context.Context, rawPlate string) *model.Driver {
	plate := utils.NormalizePlate(rawPlate)
	if plate == "" || plate == UnknownValue {
		return nil
	}

	driver, err := s.drivers.GetByPlate(ctx, plate)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Info().Str("plate", plate).Msg("no driver registered for plate")
		} else {
			s.log.Error().Err(err).Str("plate", plate).Msg("driver lookup failed")
		}
		return nil
	}

	return driver
}

// notify sends the driver notice, or the admin fallback when no driver with
// an email was resolved, and records the outcome on the ticket. A send
// failure fails the request even though the ticket is already persisted.
func (s *TicketService) notify(ctx context.Context, ticket *model.Ticket, driver *model.Driver) error {
	notice := mailer.Notice{
		TicketID:        ticket.ID.String(),
		LicencePlate:    ticket.LicencePlate,
		IssueDate:       ticket.IssueDate,
		ReferenceNumber: ticket.ReferenceNumber,
		Price:           ticket.Price,
		Authority:       ticket.Authority,
		PaymentURL:      fmt.Sprintf("%s?ticketId=%s", s.paymentFormURL, ticket.ID),
		ImageURL:        s.urls.PublicURL(ticket.ImageBucket, ticket.ImageKey),
	}

	var sendErr error
	if driver != nil && driver.Email != "" {
		sendErr = s.mailer.SendDriverNotice(driver.Email, notice)
	} else {
		sendErr = s.mailer.SendAdminNotice(notice)
	}

	if sendErr != nil {
		if err := s.tickets.UpdateNotificationStatus(ctx, ticket.ID, model.NotificationStatusFailed); err != nil {
			s.log.Error().Err(err).Str("ticket_id", ticket.ID.String()).Msg("failed to record notification failure")
		}
		ticket.NotificationStatus = model.NotificationStatusFailed
		return fmt.Errorf("send notification: %w", sendErr)
	}

	if err := s.tickets.UpdateNotificationStatus(ctx, ticket.ID, model.NotificationStatusSent); err != nil {
		s.log.Warn().Err(err).Str("ticket_id", ticket.ID.String()).Msg("notification sent but status update failed")
	}
	ticket.NotificationStatus = model.NotificationStatusSent

	return nil
}

// ResendNotification re-runs the notification step for a persisted ticket
// whose notice never went out. Already-notified tickets are rejected.
func (s *TicketService) ResendNotification(ctx context.Context, id uuid.UUID) error {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if ticket.NotificationStatus == model.NotificationStatusSent {
		return fmt.Errorf("%w: notification already sent", ErrConflict)
	}

	driver := s.resolveDriver(ctx, ticket.LicencePlate)

	return s.notify(ctx, ticket, driver)
}

// ListPending returns every ticket still awaiting external resolution.
func (s *TicketService) ListPending(ctx context.Context) ([]model.Ticket, error) {
	status := model.TicketStatusPending
	return s.tickets.List(ctx, repository.TicketListFilter{Status: &status})
}

func (s *TicketService) List(ctx context.Context, filter repository.TicketListFilter) ([]model.Ticket, error) {
	return s.tickets.List(ctx, filter)
}

// withUnknownDefaults guarantees the fixed extraction field set: missing
// keys get the UNKNOWN sentinel, extra keys the model returned are kept.
func withUnknownDefaults(fields map[string]string) map[string]string {
	out := make(map[string]string, len(extractedFieldNames))
	for k, v := range fields {
		out[k] = v
	}
	for _, name := range extractedFieldNames {
		if _, ok := out[name]; !ok {
			out[name] = UnknownValue
		}
	}
	return out
}
