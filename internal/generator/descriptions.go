package generator

import (
	"strings"

	"github.com/banking/fincrime-service/internal/domain"
)

// Description phrase pools per transaction type, with additional
// suffixes that appear on a share of high-risk transactions.
var (
	transferPhrases = []string{
		"Wire transfer", "ACH transfer", "International transfer",
		"Fund transfer", "Cross-border transfer",
	}
	transferSuffixes = []string{
		"to high-risk jurisdiction",
		"- unusual amount",
		"with incomplete documentation",
		"flagged by monitoring system",
	}

	depositPhrases = []string{
		"Cash deposit", "Check deposit", "Mobile deposit",
		"ATM deposit", "Batch deposit",
	}
	depositSuffixes = []string{
		"- multiple small amounts",
		"- structured transaction",
		"with currency exchange",
		"from unverified source",
	}

	withdrawalPhrases = []string{
		"ATM withdrawal", "Bank withdrawal", "Cash withdrawal",
		"Teller withdrawal", "International withdrawal",
	}
	withdrawalSuffixes = []string{
		"- above limit",
		"- multiple locations",
		"in high-risk location",
		"- unusual pattern",
	}

	paymentPhrases = []string{
		"Online payment", "Direct payment", "Recurring payment",
		"Bill payment", "Retail payment", "International payment",
	}
	paymentSuffixes = []string{
		"- unusual merchant",
		"- high-risk vendor",
		"- suspicious pattern",
		"flagged for review",
	}
)

const highRiskSuffixProbability = 0.3

func (g *Generator) describe(txType domain.TransactionType, bucket domain.RiskIndicator, merchant *domain.MerchantInfo) string {
	var phrases, suffixes []string
	switch txType {
	case domain.TypeTransfer:
		phrases, suffixes = transferPhrases, transferSuffixes
	case domain.TypeDeposit:
		phrases, suffixes = depositPhrases, depositSuffixes
	case domain.TypeWithdrawal:
		phrases, suffixes = withdrawalPhrases, withdrawalSuffixes
	default:
		phrases, suffixes = paymentPhrases, paymentSuffixes
	}

	parts := []string{g.pickString(phrases)}
	if txType == domain.TypePayment && merchant != nil {
		parts = append(parts, "to "+merchant.Name)
	}
	if bucket == domain.RiskHigh && g.rng.Float64() < highRiskSuffixProbability {
		parts = append(parts, g.pickString(suffixes))
	}
	return strings.Join(parts, " ")
}
