package domain

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// TransactionType identifies the channel a transaction moved through
type TransactionType string

const (
	TypeTransfer   TransactionType = "transfer"
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
	TypePayment    TransactionType = "payment"
)

// TransactionTypes lists all valid types in their canonical order
var TransactionTypes = []TransactionType{TypeTransfer, TypeDeposit, TypeWithdrawal, TypePayment}

// Valid reports whether the type is one of the known channels
func (t TransactionType) Valid() bool {
	switch t {
	case TypeTransfer, TypeDeposit, TypeWithdrawal, TypePayment:
		return true
	}
	return false
}

// Inbound reports whether funds move toward the customer's account.
// Used by circularity detection to pair out-and-back flows.
func (t TransactionType) Inbound() bool {
	return t == TypeDeposit
}

// TransactionStatus represents the review state of a flagged transaction
type TransactionStatus string

const (
	StatusFlagged   TransactionStatus = "flagged"
	StatusReviewed  TransactionStatus = "reviewed"
	StatusDismissed TransactionStatus = "dismissed"
)

// Valid reports whether the status is an accepted review state
func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusFlagged, StatusReviewed, StatusDismissed:
		return true
	}
	return false
}

// RiskIndicator is the generator/assessor-derived risk bucket.
// It is never independently settable: High means the amount fell in the
// type's high-risk range or the country is a high-tier jurisdiction.
type RiskIndicator string

const (
	RiskHigh   RiskIndicator = "High"
	RiskNormal RiskIndicator = "Normal"
)

// RiskTier classifies a jurisdiction's financial crime exposure
type RiskTier string

const (
	TierLow    RiskTier = "low"
	TierMedium RiskTier = "medium"
	TierHigh   RiskTier = "high"
)

// RiskProfile is the customer's standing risk classification
type RiskProfile string

const (
	ProfileLow    RiskProfile = "Low"
	ProfileMedium RiskProfile = "Medium"
	ProfileHigh   RiskProfile = "High"
)

// CustomerInfo carries the customer attributes attached to a transaction
type CustomerInfo struct {
	Name        string      `json:"name"`
	AccountType string      `json:"accountType"`
	RiskProfile RiskProfile `json:"riskProfile"`
}

// MerchantInfo carries the counterparty merchant, present on payments
// and a share of transfers
type MerchantInfo struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Transaction is a monitored money movement. Immutable once created
// except for Status, which moves through the review workflow.
type Transaction struct {
	ID         string `json:"id"`
	CustomerID string `json:"customerId"`

	// Movement details
	Amount   float64         `json:"amount"`
	Currency string          `json:"currency"`
	Country  string          `json:"country"`
	Type     TransactionType `json:"transactionType"`

	// Derived classification
	RiskIndicator RiskIndicator `json:"riskIndicator"`

	// Review workflow
	Status TransactionStatus `json:"status"`

	// Context
	Timestamp    time.Time     `json:"timestamp"`
	Description  string        `json:"description,omitempty"`
	CustomerInfo *CustomerInfo `json:"customerInfo,omitempty"`
	MerchantInfo *MerchantInfo `json:"merchantInfo,omitempty"`
}

// amountPrinter renders amounts with English grouping separators
var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders an amount with its currency code and thousands
// separators, e.g. "SGD 75,000.00". Factor statements and reasoning
// text all use this one rendering.
func FormatAmount(currency string, amount float64) string {
	return fmt.Sprintf("%s %s", currency, amountPrinter.Sprintf("%.2f", amount))
}

// IsHighRisk returns true if the transaction carries the High indicator
func (t *Transaction) IsHighRisk() bool {
	return t.RiskIndicator == RiskHigh
}

// AmountString renders the transaction amount via FormatAmount
func (t *Transaction) AmountString() string {
	return FormatAmount(t.Currency, t.Amount)
}

// Profile returns the customer risk profile, or the zero value when no
// customer info is attached
func (t *Transaction) Profile() RiskProfile {
	if t.CustomerInfo == nil {
		return ""
	}
	return t.CustomerInfo.RiskProfile
}

// Clone returns a deep copy so callers can hold transactions without
// sharing mutable state with the store
func (t *Transaction) Clone() *Transaction {
	cp := *t
	if t.CustomerInfo != nil {
		ci := *t.CustomerInfo
		cp.CustomerInfo = &ci
	}
	if t.MerchantInfo != nil {
		mi := *t.MerchantInfo
		cp.MerchantInfo = &mi
	}
	return &cp
}
