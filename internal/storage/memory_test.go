package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/paypark-backend/internal/apperr"
	"github.com/Ananth-NQI/paypark-backend/internal/models"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTicket(vehicleNo, mobileNo string, at time.Time) *models.Ticket {
	return models.NewTicket(models.NewTicketInput{
		CustomerName: "Test Customer",
		VehicleNo:    vehicleNo,
		MobileNo:     mobileNo,
	}, at, "1234", 10*time.Minute)
}

func TestMemoryStoreCreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	created, err := store.Create(ctx, newTicket("mh12ab1234", "9876543210", base))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	byID, err := store.FindByTicketID(ctx, created.TicketID)
	require.NoError(t, err)
	assert.Equal(t, created.TicketID, byID.TicketID)

	byVehicle, err := store.FindActiveByVehicle(ctx, " MH12ab1234")
	require.NoError(t, err)
	assert.Equal(t, created.TicketID, byVehicle.TicketID)

	_, err = store.FindByTicketID(ctx, "TKT-missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.FindActiveByVehicle(ctx, "KA01XY0001")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreRejectsSecondActiveTicket(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first, err := store.Create(ctx, newTicket("MH12AB1234", "9876543210", base))
	require.NoError(t, err)

	_, err = store.Create(ctx, newTicket("mh12ab1234", "9876543210", base.Add(time.Second)))
	assert.ErrorIs(t, err, ErrActiveTicketExists)

	_, err = store.Update(ctx, first.TicketID, func(tk *models.Ticket) error {
		return tk.Cancel(base.Add(time.Minute))
	})
	require.NoError(t, err)

	_, err = store.Create(ctx, newTicket("MH12AB1234", "9876543210", base.Add(2*time.Minute)))
	assert.NoError(t, err)
}

func TestMemoryStoreUpdateIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore().WithClock(func() time.Time { return base.Add(time.Hour) })

	created, err := store.Create(ctx, newTicket("MH12AB1234", "9876543210", base))
	require.NoError(t, err)

	// a failing mutation leaves the stored ticket untouched
	_, err = store.Update(ctx, created.TicketID, func(tk *models.Ticket) error {
		tk.CustomerName = "changed"
		return apperr.InvalidState("nope")
	})
	require.Error(t, err)
	stored, err := store.FindByTicketID(ctx, created.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "Test Customer", stored.CustomerName)
	assert.Equal(t, int64(1), stored.Version)

	updated, err := store.Update(ctx, created.TicketID, func(tk *models.Ticket) error {
		tk.OTP.Verified = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, updated.OTP.Verified)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, base.Add(time.Hour), updated.UpdatedAt)

	_, err = store.Update(ctx, "TKT-missing", func(*models.Ticket) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreUpdateKeepsKeyWhenCallerBufferIsReused(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	created, err := store.Create(ctx, newTicket("MH12AB1234", "9876543210", base))
	require.NoError(t, err)

	// the id aliases a buffer the caller overwrites afterwards, the way
	// fasthttp reuses request memory behind route params
	buf := []byte(created.TicketID)
	aliased := unsafe.String(&buf[0], len(buf))
	_, err = store.Update(ctx, aliased, func(tk *models.Ticket) error {
		return tk.Cancel(base.Add(time.Minute))
	})
	require.NoError(t, err)
	for i := range buf {
		buf[i] = 'x'
	}

	stored, err := store.FindByTicketID(ctx, created.TicketID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusCancelled, stored.Status)

	_, err = store.Update(ctx, created.TicketID, func(*models.Ticket) error { return nil })
	assert.NoError(t, err)
}

func TestMemoryStoreCreateRejectsDuplicateTicketID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first := newTicket("MH12AB1234", "9876543210", base)
	_, err := store.Create(ctx, first)
	require.NoError(t, err)

	second := newTicket("KA01XY0001", "9123456780", base)
	second.TicketID = first.TicketID
	_, err = store.Create(ctx, second)
	assert.ErrorIs(t, err, ErrDuplicateTicketID)
}

func TestMemoryStoreConcurrentCompleteSucceedsOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	created, err := store.Create(ctx, newTicket("MH12AB1234", "9876543210", base))
	require.NoError(t, err)
	_, err = store.Update(ctx, created.TicketID, func(tk *models.Ticket) error {
		return tk.VerifyOTP("1234", base, false)
	})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		invalid   atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, created.TicketID, func(tk *models.Ticket) error {
				return tk.Complete(base.Add(time.Hour))
			})
			switch {
			case err == nil:
				successes.Add(1)
			case apperr.Is(err, apperr.KindInvalidState):
				invalid.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(19), invalid.Load())
}

func TestMemoryStoreListByMobile(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i := 0; i < 12; i++ {
		tk := newTicket(fmt.Sprintf("MH12AB%04d", i), "9876543210", base.Add(time.Duration(i)*time.Minute))
		_, err := store.Create(ctx, tk)
		require.NoError(t, err)
	}
	_, err := store.Create(ctx, newTicket("KA01XY0001", "9123456780", base))
	require.NoError(t, err)

	tickets, err := store.ListByMobile(ctx, "9876543210", 10)
	require.NoError(t, err)
	require.Len(t, tickets, 10)
	assert.Equal(t, "MH12AB0011", tickets[0].VehicleNo)
	assert.Equal(t, "MH12AB0002", tickets[9].VehicleNo)
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i := 0; i < 5; i++ {
		created, err := store.Create(ctx, newTicket(fmt.Sprintf("MH12AB%04d", i), "9876543210", base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
		if i%2 == 0 {
			_, err = store.Update(ctx, created.TicketID, func(tk *models.Ticket) error {
				return tk.Cancel(base)
			})
			require.NoError(t, err)
		}
	}

	all, total, err := store.List(ctx, TicketFilter{}, Page{Number: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, all, 2)
	assert.Equal(t, "MH12AB0004", all[0].VehicleNo)

	last, total, err := store.List(ctx, TicketFilter{}, Page{Number: 3, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, last, 1)

	beyond, _, err := store.List(ctx, TicketFilter{}, Page{Number: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond)

	cancelled, total, err := store.List(ctx, TicketFilter{Status: models.TicketStatusCancelled}, Page{Number: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, cancelled, 3)

	from := base.Add(90 * time.Minute)
	to := base.Add(3 * time.Hour)
	ranged, total, err := store.List(ctx, TicketFilter{From: &from, To: &to}, Page{Number: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, ranged, 2)

	byVehicle, total, err := store.List(ctx, TicketFilter{VehicleNo: "mh12ab0001"}, Page{Number: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "MH12AB0001", byVehicle[0].VehicleNo)
}

func TestMemoryStoreHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().FindByTicketID(ctx, "TKT-1")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPageOffset(t *testing.T) {
	assert.Equal(t, 0, Page{Number: 0, Limit: 20}.Offset())
	assert.Equal(t, 0, Page{Number: 1, Limit: 20}.Offset())
	assert.Equal(t, 40, Page{Number: 3, Limit: 20}.Offset())
}
