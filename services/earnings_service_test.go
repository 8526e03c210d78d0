package services

import (
	"testing"
	"time"

	"github.com/edupay/payment_service/models"
	"github.com/google/uuid"
)

func TestGetMonthlyBreakdown(t *testing.T) {
	db := setupTestDB(t)
	ledger := newTestLedger(db, &stubGateway{})
	earnings := NewEarningsService(db, ledger)
	instructor := createPayableInstructor(t, db)

	jan := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)

	first := insertPayment(t, db, instructor.ID, 40, jan)
	insertPayment(t, db, instructor.ID, 35, jan.Add(24*time.Hour))
	insertPayment(t, db, instructor.ID, 30, feb)
	// Refund issued in February against a January payment counts in February.
	insertRefund(t, db, first, 10, feb.Add(time.Hour))

	months, err := earnings.GetMonthlyBreakdown(instructor.ID, time.Time{})
	if err != nil {
		t.Fatalf("GetMonthlyBreakdown: %v", err)
	}
	if len(months) != 2 {
		t.Fatalf("months: got %d, want 2", len(months))
	}

	// Newest first.
	if months[0].Month != "2024-02" || months[1].Month != "2024-01" {
		t.Fatalf("ordering: got %s, %s", months[0].Month, months[1].Month)
	}

	february := months[0]
	if got := february.Earnings.StringFixed(2); got != "20.00" {
		t.Errorf("february earnings: got %s, want 20.00", got)
	}
	if february.PaymentCount != 1 || february.RefundCount != 1 {
		t.Errorf("february counts: got %d payments, %d refunds", february.PaymentCount, february.RefundCount)
	}

	january := months[1]
	if got := january.Earnings.StringFixed(2); got != "75.00" {
		t.Errorf("january earnings: got %s, want 75.00", got)
	}
	if january.PaymentCount != 2 || january.RefundCount != 0 {
		t.Errorf("january counts: got %d payments, %d refunds", january.PaymentCount, january.RefundCount)
	}
}

func TestGetMonthlyBreakdownSinceFilter(t *testing.T) {
	db := setupTestDB(t)
	ledger := newTestLedger(db, &stubGateway{})
	earnings := NewEarningsService(db, ledger)
	instructor := createPayableInstructor(t, db)

	insertPayment(t, db, instructor.ID, 40, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	insertPayment(t, db, instructor.ID, 30, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))

	months, err := earnings.GetMonthlyBreakdown(instructor.ID, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetMonthlyBreakdown: %v", err)
	}
	if len(months) != 1 || months[0].Month != "2024-02" {
		t.Fatalf("since filter: got %+v", months)
	}
}

func TestGetCourseBreakdown(t *testing.T) {
	db := setupTestDB(t)
	ledger := newTestLedger(db, &stubGateway{})
	earnings := NewEarningsService(db, ledger)
	instructor := createPayableInstructor(t, db)

	now := time.Now().Add(-time.Hour)
	courseA := uuid.New()
	courseB := uuid.New()

	high := insertPayment(t, db, instructor.ID, 50, now)
	second := insertPayment(t, db, instructor.ID, 45, now.Add(time.Minute))
	low := insertPayment(t, db, instructor.ID, 20, now.Add(2*time.Minute))
	for _, txn := range []struct {
		id     uuid.UUID
		course uuid.UUID
	}{
		{high.ID, courseA},
		{second.ID, courseA},
		{low.ID, courseB},
	} {
		if err := db.Model(&models.Transaction{}).Where("id = ?", txn.id).Update("course_id", txn.course).Error; err != nil {
			t.Fatalf("assign course: %v", err)
		}
	}

	courses, err := earnings.GetCourseBreakdown(instructor.ID)
	if err != nil {
		t.Fatalf("GetCourseBreakdown: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("courses: got %d, want 2", len(courses))
	}

	// Highest earnings first.
	if courses[0].CourseID != courseA {
		t.Errorf("first course: got %s, want %s", courses[0].CourseID, courseA)
	}
	if got := courses[0].Earnings.StringFixed(2); got != "95.00" {
		t.Errorf("course A earnings: got %s, want 95.00", got)
	}
	if courses[0].PaymentCount != 2 {
		t.Errorf("course A payment count: got %d, want 2", courses[0].PaymentCount)
	}
	if got := courses[1].Earnings.StringFixed(2); got != "20.00" {
		t.Errorf("course B earnings: got %s, want 20.00", got)
	}
}

func TestGetPendingBalanceIncludesOnlyUnsettled(t *testing.T) {
	db := setupTestDB(t)
	gateway := &stubGateway{}
	ledger := newTestLedger(db, gateway)
	earnings := NewEarningsService(db, ledger)
	instructor := createPayableInstructor(t, db)

	txn := insertPayment(t, db, instructor.ID, 50, time.Now().Add(-time.Hour))
	insertPayment(t, db, instructor.ID, 25, time.Now().Add(-30*time.Minute))

	// Simulate settlement of the first payment.
	payoutID := uuid.New()
	if err := db.Model(&models.Transaction{}).Where("id = ?", txn.ID).Update("payout_id", payoutID).Error; err != nil {
		t.Fatalf("tag transaction: %v", err)
	}

	balance, err := earnings.GetPendingBalance(instructor.ID)
	if err != nil {
		t.Fatalf("GetPendingBalance: %v", err)
	}
	if got := balance.PendingAmount.StringFixed(2); got != "25.00" {
		t.Errorf("pending balance: got %s, want 25.00", got)
	}

	// Reporting rollups still count the settled row.
	courses, err := earnings.GetCourseBreakdown(instructor.ID)
	if err != nil {
		t.Fatalf("GetCourseBreakdown: %v", err)
	}
	total := 0
	for _, c := range courses {
		total += c.PaymentCount
	}
	if total != 2 {
		t.Errorf("reported payments: got %d, want 2", total)
	}
}
