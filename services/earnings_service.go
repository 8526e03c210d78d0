package services

import (
	"sort"
	"time"

	"github.com/edupay/payment_service/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EarningsService provides the read-only rollups the settlement engine and
// reporting collaborators depend on. Aggregation happens in Go over the
// selected rows so the same queries run on Postgres and the sqlite test
// driver.
type EarningsService struct {
	db     *gorm.DB
	ledger *LedgerService
}

func NewEarningsService(db *gorm.DB, ledger *LedgerService) *EarningsService {
	return &EarningsService{db: db, ledger: ledger}
}

// GetPendingBalance is the settlement engine's view of what is owed.
func (s *EarningsService) GetPendingBalance(instructorID uuid.UUID) (*UnsettledBalance, error) {
	return s.ledger.GetUnsettledBalance(instructorID)
}

type MonthlyEarnings struct {
	Month        string          `json:"month"`
	GrossAmount  decimal.Decimal `json:"gross_amount"`
	Earnings     decimal.Decimal `json:"earnings"`
	Commission   decimal.Decimal `json:"commission"`
	PaymentCount int             `json:"payment_count"`
	RefundCount  int             `json:"refund_count"`
}

// GetMonthlyBreakdown rolls earnings up by calendar month, newest first.
// Refund rows net against the month they were issued in, not the month of
// the original payment.
func (s *EarningsService) GetMonthlyBreakdown(instructorID uuid.UUID, since time.Time) ([]MonthlyEarnings, error) {
	rows, err := s.settledAndUnsettledRows(instructorID, since)
	if err != nil {
		return nil, err
	}

	byMonth := make(map[string]*MonthlyEarnings)
	for _, row := range rows {
		month := row.CreatedAt.Format("2006-01")
		entry, ok := byMonth[month]
		if !ok {
			entry = &MonthlyEarnings{
				Month:       month,
				GrossAmount: decimal.Zero,
				Earnings:    decimal.Zero,
				Commission:  decimal.Zero,
			}
			byMonth[month] = entry
		}
		if row.Kind == models.TxnKindPayment {
			entry.GrossAmount = entry.GrossAmount.Add(row.Amount)
			entry.PaymentCount++
		} else {
			entry.GrossAmount = entry.GrossAmount.Sub(row.Amount)
			entry.RefundCount++
		}
		entry.Earnings = entry.Earnings.Add(row.InstructorEarnings)
		entry.Commission = entry.Commission.Add(row.PlatformCommission)
	}

	result := make([]MonthlyEarnings, 0, len(byMonth))
	for _, entry := range byMonth {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Month > result[j].Month })
	return result, nil
}

type CourseEarnings struct {
	CourseID     uuid.UUID       `json:"course_id"`
	GrossAmount  decimal.Decimal `json:"gross_amount"`
	Earnings     decimal.Decimal `json:"earnings"`
	PaymentCount int             `json:"payment_count"`
	RefundCount  int             `json:"refund_count"`
}

// GetCourseBreakdown rolls earnings up per course, highest earnings first.
func (s *EarningsService) GetCourseBreakdown(instructorID uuid.UUID) ([]CourseEarnings, error) {
	rows, err := s.settledAndUnsettledRows(instructorID, time.Time{})
	if err != nil {
		return nil, err
	}

	byCourse := make(map[uuid.UUID]*CourseEarnings)
	for _, row := range rows {
		entry, ok := byCourse[row.CourseID]
		if !ok {
			entry = &CourseEarnings{
				CourseID:    row.CourseID,
				GrossAmount: decimal.Zero,
				Earnings:    decimal.Zero,
			}
			byCourse[row.CourseID] = entry
		}
		if row.Kind == models.TxnKindPayment {
			entry.GrossAmount = entry.GrossAmount.Add(row.Amount)
			entry.PaymentCount++
		} else {
			entry.GrossAmount = entry.GrossAmount.Sub(row.Amount)
			entry.RefundCount++
		}
		entry.Earnings = entry.Earnings.Add(row.InstructorEarnings)
	}

	result := make([]CourseEarnings, 0, len(byCourse))
	for _, entry := range byCourse {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Earnings.GreaterThan(result[j].Earnings) })
	return result, nil
}

// settledAndUnsettledRows returns every countable ledger row for reporting;
// unlike settlement queries this includes rows already allocated to payouts.
// Disputed rows stay excluded.
func (s *EarningsService) settledAndUnsettledRows(instructorID uuid.UUID, since time.Time) ([]models.Transaction, error) {
	query := s.db.
		Where("instructor_id = ? AND status IN ?",
			instructorID, []models.TransactionStatus{models.TxnStatusCompleted, models.TxnStatusRefunded})
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}

	var rows []models.Transaction
	if err := query.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
