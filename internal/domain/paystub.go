package domain

import "time"

// Deduction categories extracted from a paystub.
const (
	DeductionFederalTax  = "federalTax"
	DeductionStateTax    = "stateTax"
	DeductionFICA        = "ficaMedicare"
	DeductionRetirement  = "retirement"
	DeductionHSAFSA      = "hsaFsa"
	DeductionDebtPayment = "debtPayments"
)

// Paystub holds structured income data extracted from an uploaded paystub
// document. Users may correct the extracted amounts afterwards.
type Paystub struct {
	ID         string             `json:"paystubId"`
	UserID     string             `json:"userId"`
	MonthKey   string             `json:"monthKey"`
	SourceName string             `json:"sourceName"`
	PayDate    time.Time          `json:"payDate"`
	GrossPay   float64            `json:"grossPay"`
	NetPay     float64            `json:"netPay"`
	Deductions map[string]float64 `json:"deductions"`
	RawFileKey string             `json:"rawFileKey"`
	UploadedAt time.Time          `json:"uploadedAt"`
}

// RecurringBill is a fixed monthly expense definition. Applying a bill to a
// month materializes a manual transaction in that month.
type RecurringBill struct {
	ID         string  `json:"billId"`
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Bucket     string  `json:"bucket"`
	DayOfMonth int     `json:"dayOfMonth"`
}
