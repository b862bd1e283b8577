package orders

import (
	"testing"
	"time"

	"kirana_back_end/internal/models"
	"kirana_back_end/internal/pickup"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

func seedOrderForPickup(repo *fakeOrderRepo, userID gocql.UUID, status models.OrderStatus, minPickup time.Time) gocql.UUID {
	id := gocql.UUID(uuid.New())
	repo.orders[id] = &models.Order{
		ID: id, UserID: userID, Status: status,
		PickupStatus: models.PickupUnscheduled,
		MinPickupAt:  &minPickup,
		CreatedAt:    minPickup.Add(-3 * time.Hour),
	}
	return id
}

func TestSchedulePickup(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	userID := gocql.UUID(uuid.New())
	minPickup, _ := pickup.ToUTC("2024-06-10", "13:00")
	id := seedOrderForPickup(repo, userID, models.StatusProcessing, minPickup)

	order, err := svc.SchedulePickup(ScheduleInput{
		OrderID: id, ActorID: userID, ActorRole: "user",
		Date: "2024-06-11", Time: "14:00",
	})
	if err != nil {
		t.Fatalf("SchedulePickup: %v", err)
	}
	if order.PickupStatus != models.PickupScheduled {
		t.Errorf("pickupStatus = %s", order.PickupStatus)
	}
	wantStart, _ := pickup.ToUTC("2024-06-11", "14:00")
	if order.PickupStart == nil || !order.PickupStart.Equal(wantStart) {
		t.Errorf("pickupStart = %v, want %v", order.PickupStart, wantStart)
	}
	if order.PickupEnd == nil || !order.PickupEnd.Equal(wantStart.Add(time.Hour)) {
		t.Errorf("pickupEnd = %v, want one slot after start", order.PickupEnd)
	}
	stored := repo.orders[id]
	if stored.PickupStatus != models.PickupScheduled || stored.ScheduledAt == nil {
		t.Error("schedule not persisted")
	}
}

func TestSchedulePickupRejections(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	userID := gocql.UUID(uuid.New())
	minPickup, _ := pickup.ToUTC("2024-06-10", "13:00")

	t.Run("outside operating hours", func(t *testing.T) {
		id := seedOrderForPickup(repo, userID, models.StatusProcessing, minPickup)
		_, err := svc.SchedulePickup(ScheduleInput{OrderID: id, ActorID: userID, Date: "2024-06-11", Time: "21:00"})
		if apiErr := asAPIError(t, err); apiErr.Status != 422 {
			t.Errorf("status = %d, want 422", apiErr.Status)
		}
	})

	t.Run("closing time is excluded", func(t *testing.T) {
		id := seedOrderForPickup(repo, userID, models.StatusProcessing, minPickup)
		_, err := svc.SchedulePickup(ScheduleInput{OrderID: id, ActorID: userID, Date: "2024-06-11", Time: "20:00"})
		if apiErr := asAPIError(t, err); apiErr.Status != 422 {
			t.Errorf("status = %d, want 422", apiErr.Status)
		}
	})

	t.Run("before minimum pickup", func(t *testing.T) {
		id := seedOrderForPickup(repo, userID, models.StatusProcessing, minPickup)
		_, err := svc.SchedulePickup(ScheduleInput{OrderID: id, ActorID: userID, Date: "2024-06-10", Time: "12:00"})
		apiErr := asAPIError(t, err)
		if apiErr.Status != 422 {
			t.Fatalf("status = %d, want 422", apiErr.Status)
		}
		if _, ok := apiErr.Extra["minPickupAt"]; !ok {
			t.Error("422 payload missing minPickupAt")
		}
	})

	t.Run("same-day buffer", func(t *testing.T) {
		// Clock is 10:00 local; with the 2h buffer a 13:30 same-day slot is
		// fine but 11:30 is not, regardless of the order being ready.
		early, _ := pickup.ToUTC("2024-06-10", "09:00")
		id := seedOrderForPickup(repo, userID, models.StatusProcessing, early)
		_, err := svc.SchedulePickup(ScheduleInput{OrderID: id, ActorID: userID, Date: "2024-06-10", Time: "11:30"})
		if apiErr := asAPIError(t, err); apiErr.Status != 422 {
			t.Errorf("status = %d, want 422", apiErr.Status)
		}
		if _, err := svc.SchedulePickup(ScheduleInput{OrderID: id, ActorID: userID, Date: "2024-06-10", Time: "13:30"}); err != nil {
			t.Errorf("13:30 same-day slot rejected: %v", err)
		}
	})

	t.Run("past date", func(t *testing.T) {
		id := seedOrderForPickup(repo, userID, models.StatusProcessing, minPickup)
		_, err := svc.SchedulePickup(ScheduleInput{OrderID: id, ActorID: userID, Date: "2024-06-09", Time: "14:00"})
		if apiErr := asAPIError(t, err); apiErr.Status != 400 {
			t.Errorf("status = %d, want 400", apiErr.Status)
		}
	})

	t.Run("cancelled order", func(t *testing.T) {
		id := seedOrderForPickup(repo, userID, models.StatusCancelled, minPickup)
		_, err := svc.SchedulePickup(ScheduleInput{OrderID: id, ActorID: userID, Date: "2024-06-11", Time: "14:00"})
		if apiErr := asAPIError(t, err); apiErr.Status != 409 {
			t.Errorf("status = %d, want 409", apiErr.Status)
		}
	})

	t.Run("foreign order", func(t *testing.T) {
		id := seedOrderForPickup(repo, userID, models.StatusProcessing, minPickup)
		stranger := gocql.UUID(uuid.New())
		_, err := svc.SchedulePickup(ScheduleInput{OrderID: id, ActorID: stranger, ActorRole: "user", Date: "2024-06-11", Time: "14:00"})
		if apiErr := asAPIError(t, err); apiErr.Status != 403 {
			t.Errorf("status = %d, want 403", apiErr.Status)
		}
		if _, err := svc.SchedulePickup(ScheduleInput{OrderID: id, ActorID: stranger, ActorRole: "admin", Date: "2024-06-11", Time: "14:00"}); err != nil {
			t.Errorf("admin reschedule rejected: %v", err)
		}
	})
}

func TestMarkPickupReady(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	userID := gocql.UUID(uuid.New())
	minPickup, _ := pickup.ToUTC("2024-06-10", "13:00")
	id := seedOrderForPickup(repo, userID, models.StatusProcessing, minPickup)

	if _, err := svc.MarkPickupReady(id); err == nil {
		t.Error("unscheduled pickup marked ready")
	}

	if _, err := svc.SchedulePickup(ScheduleInput{OrderID: id, ActorID: userID, Date: "2024-06-11", Time: "14:00"}); err != nil {
		t.Fatalf("SchedulePickup: %v", err)
	}
	order, err := svc.MarkPickupReady(id)
	if err != nil {
		t.Fatalf("MarkPickupReady: %v", err)
	}
	if order.PickupStatus != models.PickupReadyForPickup || order.ReadyAt == nil {
		t.Errorf("pickupStatus = %s, readyAt = %v", order.PickupStatus, order.ReadyAt)
	}
	if order.Status != models.StatusReadyForPickup {
		t.Errorf("order status = %s, want READY_FOR_PICKUP pulled along", order.Status)
	}
}

func TestCompletePickup(t *testing.T) {
	svc, repo, products, _ := newTestService(t)
	userID := gocql.UUID(uuid.New())
	minPickup, _ := pickup.ToUTC("2024-06-10", "13:00")
	id := seedOrderForPickup(repo, userID, models.StatusReadyForPickup, minPickup)
	repo.orders[id].PickupStatus = models.PickupReadyForPickup

	order, err := svc.CompletePickup(id)
	if err != nil {
		t.Fatalf("CompletePickup: %v", err)
	}
	if order.Status != models.StatusCompleted || order.PickedUpAt == nil {
		t.Errorf("status = %s, pickedUpAt = %v", order.Status, order.PickedUpAt)
	}
	// READY_FOR_PICKUP already held stock, completing must not deduct again.
	if products.decrements != 0 {
		t.Errorf("decrements = %d, want 0", products.decrements)
	}

	if _, err := svc.CompletePickup(gocql.UUID(uuid.New())); err == nil {
		t.Error("missing order completed")
	}

	pendingID := seedOrderForPickup(repo, userID, models.StatusPending, minPickup)
	if _, err := svc.CompletePickup(pendingID); err == nil {
		t.Error("unpaid PENDING order completed without the escape hatch")
	}
}

func TestSweepMissedPickups(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	userID := gocql.UUID(uuid.New())
	now := svc.Now().UTC()

	mk := func(end time.Time, status models.OrderStatus) gocql.UUID {
		id := gocql.UUID(uuid.New())
		start := end.Add(-time.Hour)
		repo.orders[id] = &models.Order{
			ID: id, UserID: userID, Status: status,
			PickupStatus: models.PickupScheduled,
			PickupStart:  &start, PickupEnd: &end,
		}
		return id
	}

	missed := mk(now.Add(-time.Hour), models.StatusProcessing)
	upcoming := mk(now.Add(2*time.Hour), models.StatusProcessing)
	cancelled := mk(now.Add(-time.Hour), models.StatusCancelled)

	n, err := svc.SweepMissedPickups()
	if err != nil {
		t.Fatalf("SweepMissedPickups: %v", err)
	}
	if n != 1 {
		t.Errorf("missed = %d, want 1", n)
	}
	if repo.orders[missed].PickupStatus != models.PickupMissed {
		t.Error("overdue slot not marked MISSED")
	}
	if repo.orders[missed].Status != models.StatusProcessing {
		t.Error("payment status touched by the pickup sweep")
	}
	if repo.orders[upcoming].PickupStatus != models.PickupScheduled {
		t.Error("upcoming slot marked MISSED")
	}
	if repo.orders[cancelled].PickupStatus != models.PickupScheduled {
		t.Error("cancelled order's slot swept")
	}
}
