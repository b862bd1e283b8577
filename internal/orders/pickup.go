package orders

import (
	"log"
	"time"

	"kirana_back_end/internal/config"
	"kirana_back_end/internal/httperr"
	"kirana_back_end/internal/models"
	"kirana_back_end/internal/pickup"
	"kirana_back_end/internal/store"

	"github.com/gocql/gocql"
)

type ScheduleInput struct {
	OrderID   gocql.UUID
	ActorID   gocql.UUID
	ActorRole string
	Date      string `json:"pickup_date"` // YYYY-MM-DD, Jakarta-local
	Time      string `json:"pickup_time"` // HH:mm, Jakarta-local
}

// SchedulePickup books or moves an order's pickup slot. The slot must sit
// inside operating hours, on or after the order's minimum pickup instant,
// and respect the same-day buffer. Rescheduling a SCHEDULED or MISSED slot
// is allowed; a completed or cancelled order is not.
func (s *Service) SchedulePickup(in ScheduleInput) (*models.Order, error) {
	order, err := s.Orders.GetByID(in.OrderID)
	if err == store.ErrNotFound {
		return nil, httperr.NotFound("Pesanan tidak ditemukan")
	}
	if err != nil {
		return nil, err
	}
	if order.UserID != in.ActorID && in.ActorRole != "admin" {
		return nil, httperr.Forbidden("Anda tidak berhak mengatur jadwal pesanan ini")
	}
	switch order.Status {
	case models.StatusCancelled:
		return nil, httperr.Conflict("Pesanan sudah dibatalkan")
	case models.StatusCompleted:
		return nil, httperr.Conflict("Pesanan sudah selesai")
	}

	pcfg := config.Pickup()
	now := s.Now().UTC()

	start, err := pickup.ToUTC(in.Date, in.Time)
	if err != nil {
		return nil, httperr.Validation(err.Error())
	}
	days, err := pickup.DaysFromToday(in.Date, now)
	if err != nil {
		return nil, httperr.Validation(err.Error())
	}
	if days < 0 {
		return nil, httperr.Validation("Tanggal pengambilan sudah lewat")
	}

	minPickup := s.orderMinPickup(order)
	if !pickup.IsWithinOperatingHours(pcfg.OpenTime, pcfg.CloseTime, start) {
		return nil, httperr.Scheduling("Slot di luar jam operasional toko", minPickup)
	}
	if start.Before(minPickup) {
		return nil, httperr.Scheduling("Pesanan belum siap pada waktu tersebut", minPickup)
	}
	if !pickup.SameDayBufferSatisfied(in.Date, in.Time, pcfg.SameDayBufferMinutes, now) {
		return nil, httperr.Scheduling("Slot hari ini harus dipesan lebih awal", minPickup)
	}

	slot := pcfg.SlotMinutes
	if slot <= 0 {
		slot = 60
	}
	end := start.Add(time.Duration(slot) * time.Minute)

	if err := s.Orders.SetPickupSchedule(order.ID, start, end, now); err != nil {
		return nil, err
	}

	order.PickupStart = &start
	order.PickupEnd = &end
	order.PickupAt = &start
	order.PickupStatus = models.PickupScheduled
	order.ScheduledAt = &now
	order.UpdatedAt = now
	return order, nil
}

// orderMinPickup prefers the instant frozen at creation and recomputes from
// the item snapshots only for rows that predate the column.
func (s *Service) orderMinPickup(order *models.Order) time.Time {
	if order.MinPickupAt != nil {
		return *order.MinPickupAt
	}
	var availabilities []models.Availability
	for _, it := range order.Items {
		if p, err := s.Products.GetByID(it.ProductID); err == nil {
			availabilities = append(availabilities, p.Availability)
		}
	}
	return s.MinPickupAt(order.CreatedAt, availabilities)
}

// MarkPickupReady flags a scheduled pickup as waiting at the counter and
// pulls the order status along when it is still PROCESSING.
func (s *Service) MarkPickupReady(orderID gocql.UUID) (*models.Order, error) {
	order, err := s.Orders.GetByID(orderID)
	if err == store.ErrNotFound {
		return nil, httperr.NotFound("Pesanan tidak ditemukan")
	}
	if err != nil {
		return nil, err
	}
	if order.PickupStatus != models.PickupScheduled {
		return nil, httperr.Conflict("Pengambilan belum dijadwalkan")
	}

	now := s.Now().UTC()
	if err := s.Orders.SetPickupStatus(orderID, models.PickupReadyForPickup, &now, nil); err != nil {
		return nil, err
	}
	if order.Status == models.StatusProcessing {
		if applied, err := s.Orders.CompareAndSetStatus(orderID, models.StatusProcessing, models.StatusReadyForPickup); err != nil {
			log.Printf("⚠️ order %s status to READY_FOR_PICKUP: %v", orderID, err)
		} else if applied {
			order.Status = models.StatusReadyForPickup
		}
	}

	order.PickupStatus = models.PickupReadyForPickup
	order.ReadyAt = &now
	order.UpdatedAt = now
	return order, nil
}

// CompletePickup records the handover and closes the order.
func (s *Service) CompletePickup(orderID gocql.UUID) (*models.Order, error) {
	order, err := s.Orders.GetByID(orderID)
	if err == store.ErrNotFound {
		return nil, httperr.NotFound("Pesanan tidak ditemukan")
	}
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(order.Status, models.StatusCompleted, config.AllowPendingToCompleted()) {
		return nil, httperr.Conflict("Pesanan belum dapat diselesaikan dari status " + string(order.Status))
	}

	now := s.Now().UTC()
	if order.Status != models.StatusCompleted {
		applied, err := s.Orders.CompareAndSetStatus(orderID, order.Status, models.StatusCompleted)
		if err != nil {
			return nil, err
		}
		if !applied {
			return nil, httperr.Conflict("Pesanan sedang diubah oleh proses lain, coba lagi")
		}
		s.applyStockSideEffects(order, order.Status, models.StatusCompleted)
	}
	if err := s.Orders.SetPickupStatus(orderID, order.PickupStatus, nil, &now); err != nil {
		log.Printf("⚠️ record picked_up_at for %s: %v", orderID, err)
	}

	order.Status = models.StatusCompleted
	order.PickedUpAt = &now
	order.UpdatedAt = now
	return order, nil
}

// SweepMissedPickups marks scheduled slots whose window closed without a
// handover. Payment status is left alone; a missed slot on a paid order is a
// staffing problem, not a payment one.
func (s *Service) SweepMissedPickups() (int, error) {
	scheduled, err := s.Orders.ListScheduledPickups()
	if err != nil {
		return 0, err
	}
	now := s.Now().UTC()

	missed := 0
	for i := range scheduled {
		o := &scheduled[i]
		if o.PickupEnd == nil || now.Before(*o.PickupEnd) {
			continue
		}
		if o.PickedUpAt != nil || o.Status == models.StatusCompleted || o.Status == models.StatusCancelled {
			continue
		}
		if err := s.Orders.SetPickupStatus(o.ID, models.PickupMissed, nil, nil); err != nil {
			log.Printf("⚠️ mark pickup missed for %s: %v", o.ID, err)
			continue
		}
		missed++
	}
	return missed, nil
}
