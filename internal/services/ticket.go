package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ananth-NQI/paypark-backend/internal/apperr"
	"github.com/Ananth-NQI/paypark-backend/internal/config"
	"github.com/Ananth-NQI/paypark-backend/internal/events"
	"github.com/Ananth-NQI/paypark-backend/internal/models"
	"github.com/Ananth-NQI/paypark-backend/internal/storage"
	"github.com/Ananth-NQI/paypark-backend/internal/utils"
)

const (
	ticketNotFound     = "Ticket not found"
	mobileHistoryLimit = 10
	defaultPageLimit   = 20
	maxPageLimit       = 100
	dateLayout         = "2006-01-02"
	ticketIDAttempts   = 3
)

// TicketService owns the ticket lifecycle: creation, lookups, dispatch and
// administrative status changes.
type TicketService struct {
	store     storage.Store
	publisher events.Publisher
	otp       config.OTPConfig
	rates     models.Rates
	now       Clock
}

// NewTicketService creates a new ticket service
func NewTicketService(store storage.Store, publisher events.Publisher, otp config.OTPConfig, rates models.Rates, now Clock) *TicketService {
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = events.LogPublisher{}
	}
	return &TicketService{store: store, publisher: publisher, otp: otp, rates: rates, now: now}
}

type CreateTicketRequest struct {
	CustomerName    string `json:"customerName" validate:"required,min=2,max=100"`
	VehicleNo       string `json:"vehicleNo" validate:"required,vehicleno"`
	MobileNo        string `json:"mobileNo" validate:"required,mobileno"`
	ParkingLocation string `json:"parkingLocation" validate:"max=100"`
	CreatedBy       string `json:"-"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,ticketstatus"`
}

// ListTicketsQuery carries the operator listing parameters as received.
type ListTicketsQuery struct {
	Page      int
	Limit     int
	Status    string
	VehicleNo string
	FromDate  string
	ToDate    string
}

type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
	HasNext      bool  `json:"hasNext"`
	HasPrev      bool  `json:"hasPrev"`
}

type TicketList struct {
	Tickets    []*TicketView `json:"tickets"`
	Pagination Pagination    `json:"pagination"`
}

// CreatedTicket is returned from CreateTicket. The OTP itself is never
// included; it is delivered on request.
type CreatedTicket struct {
	TicketID   string              `json:"ticketId"`
	VehicleNo  string              `json:"vehicleNo"`
	InDateTime time.Time           `json:"inDateTime"`
	OTPExpiry  time.Time           `json:"otpExpiry"`
	Status     models.TicketStatus `json:"status"`
}

type DispatchResult struct {
	TicketID        string    `json:"ticketId"`
	VehicleNo       string    `json:"vehicleNo"`
	OutDateTime     time.Time `json:"outDateTime"`
	ParkingDuration int       `json:"parkingDuration"`
	TotalFee        float64   `json:"totalFee"`
}

// CreateTicket opens a parking session for a vehicle with no active ticket.
func (s *TicketService) CreateTicket(ctx context.Context, req CreateTicketRequest) (*CreatedTicket, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.ParkingLocation = strings.TrimSpace(req.ParkingLocation)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	code, err := utils.GenerateSecureOTP(s.otp.Length)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("generate otp: %w", err))
	}

	ticket := models.NewTicket(models.NewTicketInput{
		CustomerName:    req.CustomerName,
		VehicleNo:       req.VehicleNo,
		MobileNo:        utils.FormatMobileNumber(req.MobileNo),
		ParkingLocation: req.ParkingLocation,
		CreatedBy:       req.CreatedBy,
	}, s.now(), code, s.otp.TTL)

	var created *models.Ticket
	for attempt := 1; ; attempt++ {
		created, err = s.store.Create(ctx, ticket)
		if !errors.Is(err, storage.ErrDuplicateTicketID) || attempt == ticketIDAttempts {
			break
		}
		ticket.TicketID = utils.GenerateTicketID(s.now())
	}
	if err != nil {
		return nil, storeError(err, ticketNotFound)
	}

	logrus.WithFields(logrus.Fields{
		"ticket_id":  created.TicketID,
		"vehicle_no": created.VehicleNo,
	}).Info("Parking ticket created")
	publish(ctx, s.publisher, events.New(events.TicketCreated, created.TicketID, created.VehicleNo, string(created.Status), created.CreatedAt))

	return &CreatedTicket{
		TicketID:   created.TicketID,
		VehicleNo:  created.VehicleNo,
		InDateTime: created.InDateTime,
		OTPExpiry:  created.OTP.ExpiresAt,
		Status:     created.Status,
	}, nil
}

// GetActiveByVehicle returns the active ticket of a vehicle with its fee so far.
func (s *TicketService) GetActiveByVehicle(ctx context.Context, vehicleNo string) (*TicketView, error) {
	normalized, err := validateVehicleNo(vehicleNo)
	if err != nil {
		return nil, err
	}
	ticket, err := s.store.FindActiveByVehicle(ctx, normalized)
	if err != nil {
		return nil, storeError(err, noActiveTicket)
	}
	return newTicketView(ticket, s.now(), s.rates), nil
}

func (s *TicketService) GetByTicketID(ctx context.Context, ticketID string) (*TicketView, error) {
	ticket, err := s.find(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return newTicketView(ticket, s.now(), s.rates), nil
}

// ListByMobile returns the latest tickets registered to a mobile number.
func (s *TicketService) ListByMobile(ctx context.Context, mobileNo string) ([]*TicketView, error) {
	if !utils.IsValidMobileNumber(mobileNo) {
		return nil, apperr.InvalidInput(fieldMessages["MobileNo"])
	}
	tickets, err := s.store.ListByMobile(ctx, utils.FormatMobileNumber(mobileNo), mobileHistoryLimit)
	if err != nil {
		return nil, storeError(err, ticketNotFound)
	}
	return s.views(tickets), nil
}

// ListTickets is the paginated operator listing.
func (s *TicketService) ListTickets(ctx context.Context, q ListTicketsQuery) (*TicketList, error) {
	filter, page, err := s.parseListQuery(q)
	if err != nil {
		return nil, err
	}

	tickets, total, err := s.store.List(ctx, filter, page)
	if err != nil {
		return nil, storeError(err, ticketNotFound)
	}

	totalPages := int((total + int64(page.Limit) - 1) / int64(page.Limit))
	return &TicketList{
		Tickets: s.views(tickets),
		Pagination: Pagination{
			CurrentPage:  page.Number,
			TotalPages:   totalPages,
			TotalItems:   total,
			ItemsPerPage: page.Limit,
			HasNext:      page.Number < totalPages,
			HasPrev:      page.Number > 1,
		},
	}, nil
}

func (s *TicketService) parseListQuery(q ListTicketsQuery) (storage.TicketFilter, storage.Page, error) {
	var filter storage.TicketFilter
	page := storage.Page{Number: q.Page, Limit: q.Limit}
	if page.Number < 1 {
		page.Number = 1
	}
	if page.Limit < 1 {
		page.Limit = defaultPageLimit
	}
	if page.Limit > maxPageLimit {
		page.Limit = maxPageLimit
	}

	if q.Status != "" {
		status := models.TicketStatus(q.Status)
		if !status.Valid() {
			return filter, page, apperr.InvalidInput(fieldMessages["Status"])
		}
		filter.Status = status
	}
	if q.VehicleNo != "" {
		filter.VehicleNo = utils.NormalizeVehicleNo(q.VehicleNo)
	}
	if q.FromDate != "" {
		from, err := parseDate(q.FromDate)
		if err != nil {
			return filter, page, err
		}
		filter.From = &from
	}
	if q.ToDate != "" {
		to, err := parseDate(q.ToDate)
		if err != nil {
			return filter, page, err
		}
		// a bare date includes the whole day
		if len(q.ToDate) == len(dateLayout) {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		filter.To = &to
	}
	return filter, page, nil
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, apperr.InvalidInput(fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD or RFC3339", value))
	}
	return t, nil
}

// UpdateStatus is the operator override. Moving to completed goes through
// the same gate as dispatch; cancelled goes through Cancel.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID string, req UpdateStatusRequest) (*TicketView, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	switch models.TicketStatus(req.Status) {
	case models.TicketStatusCompleted:
		if _, err := s.DispatchTicket(ctx, ticketID); err != nil {
			return nil, err
		}
	case models.TicketStatusCancelled:
		if err := s.CancelTicket(ctx, ticketID); err != nil {
			return nil, err
		}
	case models.TicketStatusActive:
		ticket, err := s.find(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if ticket.Status != models.TicketStatusActive {
			return nil, apperr.InvalidState("Ticket cannot return to active")
		}
	}
	return s.GetByTicketID(ctx, ticketID)
}

// CancelTicket closes an active ticket without payment.
func (s *TicketService) CancelTicket(ctx context.Context, ticketID string) error {
	updated, err := s.store.Update(ctx, ticketID, func(t *models.Ticket) error {
		return t.Cancel(s.now())
	})
	if err != nil {
		return storeError(err, ticketNotFound)
	}

	logrus.WithField("ticket_id", updated.TicketID).Info("Parking ticket cancelled")
	publish(ctx, s.publisher, events.New(events.TicketCancelled, updated.TicketID, updated.VehicleNo, string(updated.Status), updated.UpdatedAt))
	return nil
}

// DispatchTicket completes a verified active ticket and fixes the fee due.
// Concurrent dispatches of the same ticket succeed exactly once.
func (s *TicketService) DispatchTicket(ctx context.Context, ticketID string) (*DispatchResult, error) {
	if strings.TrimSpace(ticketID) == "" {
		return nil, apperr.InvalidInput(fieldMessages["TicketID"])
	}

	var fee models.FeeBreakdown
	updated, err := s.store.Update(ctx, ticketID, func(t *models.Ticket) error {
		now := s.now()
		if err := t.Complete(now); err != nil {
			return err
		}
		fee = t.Fee(now, s.rates)
		t.MarkPaymentPending(fee.TotalFee)
		return nil
	})
	if err != nil {
		return nil, storeError(err, ticketNotFound)
	}

	logrus.WithFields(logrus.Fields{
		"ticket_id": updated.TicketID,
		"hours":     fee.HoursParked,
		"fee":       fee.TotalFee,
	}).Info("Vehicle dispatched")

	event := events.New(events.TicketDispatched, updated.TicketID, updated.VehicleNo, string(updated.Status), *updated.OutDateTime)
	amount := fee.TotalFee
	event.Amount = &amount
	publish(ctx, s.publisher, event)

	return &DispatchResult{
		TicketID:        updated.TicketID,
		VehicleNo:       updated.VehicleNo,
		OutDateTime:     *updated.OutDateTime,
		ParkingDuration: fee.HoursParked,
		TotalFee:        fee.TotalFee,
	}, nil
}

func (s *TicketService) find(ctx context.Context, ticketID string) (*models.Ticket, error) {
	if strings.TrimSpace(ticketID) == "" {
		return nil, apperr.InvalidInput(fieldMessages["TicketID"])
	}
	ticket, err := s.store.FindByTicketID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, ticketNotFound)
	}
	return ticket, nil
}

func (s *TicketService) views(tickets []*models.Ticket) []*TicketView {
	now := s.now()
	out := make([]*TicketView, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, newTicketView(t, now, s.rates))
	}
	return out
}
