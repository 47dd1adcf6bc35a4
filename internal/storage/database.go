package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Ananth-NQI/paypark-backend/internal/models"
	"github.com/Ananth-NQI/paypark-backend/internal/utils"
)

// DatabaseStore keeps tickets in PostgreSQL through gorm.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore wraps an open connection. Call Migrate before use.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db, now: time.Now}
}

// Migrate creates the tickets table and the partial unique index that
// allows a single active ticket per vehicle.
func (s *DatabaseStore) Migrate() error {
	if err := s.db.AutoMigrate(&models.Ticket{}); err != nil {
		return fmt.Errorf("failed to migrate tickets: %w", err)
	}
	err := s.db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_active_vehicle
		ON tickets (vehicle_no) WHERE status = 'active'`).Error
	if err != nil {
		return fmt.Errorf("failed to create active vehicle index: %w", err)
	}
	return nil
}

func (s *DatabaseStore) Kind() string { return "postgres" }

func (s *DatabaseStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *DatabaseStore) Create(ctx context.Context, t *models.Ticket) (*models.Ticket, error) {
	row := t.Clone()
	row.ID = 0
	if row.Version == 0 {
		row.Version = 1
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.Ticket{}).Where("ticket_id = ?", row.TicketID).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrDuplicateTicketID
		}
		if row.Status == models.TicketStatusActive {
			var count int64
			err := tx.Model(&models.Ticket{}).
				Where("vehicle_no = ? AND status = ?", row.VehicleNo, models.TicketStatusActive).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				return ErrActiveTicketExists
			}
		}
		return tx.Create(row).Error
	})
	switch {
	case err == nil:
		return row, nil
	case errors.Is(err, ErrActiveTicketExists), errors.Is(err, ErrDuplicateTicketID):
		return nil, err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		// the partial index caught a concurrent insert for the same vehicle
		return nil, ErrActiveTicketExists
	default:
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}
}

func (s *DatabaseStore) FindByTicketID(ctx context.Context, ticketID string) (*models.Ticket, error) {
	var t models.Ticket
	err := s.db.WithContext(ctx).Where("ticket_id = ?", ticketID).First(&t).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (s *DatabaseStore) FindActiveByVehicle(ctx context.Context, vehicleNo string) (*models.Ticket, error) {
	var t models.Ticket
	err := s.db.WithContext(ctx).
		Where("vehicle_no = ? AND status = ?", utils.NormalizeVehicleNo(vehicleNo), models.TicketStatusActive).
		First(&t).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// Update locks the row for the duration of the transaction. The write is
// additionally conditioned on the version that was read.
func (s *DatabaseStore) Update(ctx context.Context, ticketID string, mutate MutateFunc) (*models.Ticket, error) {
	var updated *models.Ticket

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Ticket
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("ticket_id = ?", ticketID).
			First(&t).Error
		if err != nil {
			return notFound(err)
		}

		readVersion := t.Version
		if err := mutate(&t); err != nil {
			return err
		}
		touch(&t, s.now().UTC())

		res := tx.Model(&t).
			Where("version = ?", readVersion).
			Select("*").
			Omit("id", "created_at").
			Updates(&t)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return ErrActiveTicketExists
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}
		updated = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *DatabaseStore) ListByMobile(ctx context.Context, mobileNo string, limit int) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	q := s.db.WithContext(ctx).Where("mobile_no = ?", mobileNo).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&tickets).Error; err != nil {
		return nil, fmt.Errorf("failed to list tickets by mobile: %w", err)
	}
	return tickets, nil
}

func (s *DatabaseStore) List(ctx context.Context, filter TicketFilter, page Page) ([]*models.Ticket, int64, error) {
	filtered := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Ticket{})
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.VehicleNo != "" {
			q = q.Where("vehicle_no = ?", utils.NormalizeVehicleNo(filter.VehicleNo))
		}
		if filter.From != nil {
			q = q.Where("created_at >= ?", *filter.From)
		}
		if filter.To != nil {
			q = q.Where("created_at <= ?", *filter.To)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tickets: %w", err)
	}

	var tickets []*models.Ticket
	q := filtered().Order("created_at DESC").Offset(page.Offset())
	if page.Limit > 0 {
		q = q.Limit(page.Limit)
	}
	if err := q.Find(&tickets).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, total, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
