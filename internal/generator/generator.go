// Package generator produces internally-consistent synthetic
// transactions: amount, currency, country, risk indicator, and
// narrative details always agree with the catalog's risk tables.
package generator

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/banking/fincrime-service/internal/catalog"
	"github.com/banking/fincrime-service/internal/config"
	"github.com/banking/fincrime-service/internal/domain"
)

// Transaction type draw, biased toward transfers and deposits.
var (
	transactionTypes       = []domain.TransactionType{domain.TypeTransfer, domain.TypeDeposit, domain.TypeWithdrawal, domain.TypePayment}
	transactionTypeWeights = []float64{0.35, 0.30, 0.20, 0.15}
)

// Country tier draw per risk bucket. High-risk transactions
// preferentially involve high-tier jurisdictions; normal transactions
// never draw a high-tier country, so the risk indicator stays a pure
// function of amount range and country tier.
var (
	highBucketTiers       = []domain.RiskTier{domain.TierHigh, domain.TierMedium, domain.TierLow}
	highBucketTierWeights = []float64{0.6, 0.3, 0.1}

	normalBucketTiers       = []domain.RiskTier{domain.TierLow, domain.TierMedium}
	normalBucketTierWeights = []float64{0.75, 0.25}
)

// Account type draw, aligned with the catalog's AccountTypes order.
var accountTypeWeights = []float64{0.6, 0.25, 0.1, 0.05}

// Customer risk profile draw, correlated with the transaction bucket.
var (
	riskProfiles             = []domain.RiskProfile{domain.ProfileLow, domain.ProfileMedium, domain.ProfileHigh}
	highBucketProfileWeights = []float64{0.1, 0.3, 0.6}
	normalProfileWeights     = []float64{0.6, 0.3, 0.1}
)

const merchantOnTransferProbability = 0.3

// Generator produces synthetic transaction populations. It is
// stochastic; inject a seed for reproducible output in tests.
type Generator struct {
	cat *catalog.Catalog
	cfg config.GeneratorConfig

	mu    sync.Mutex
	rng   *rand.Rand
	faker *gofakeit.Faker
	now   func() time.Time
}

// Option customizes a Generator
type Option func(*Generator)

// WithSeed makes the generator fully deterministic for a given seed
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewSource(seed))
		g.faker = gofakeit.New(seed)
	}
}

// WithClock overrides the time source used for timestamp windows
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// New builds a Generator over the catalog's risk tables. The catalog
// must offer at least one low/medium-tier country for normal
// transactions and one country overall for high-risk ones.
func New(cat *catalog.Catalog, cfg config.GeneratorConfig, opts ...Option) (*Generator, error) {
	if len(cat.Countries(domain.TierLow))+len(cat.Countries(domain.TierMedium)) == 0 {
		return nil, fmt.Errorf("%w: catalog has no low or medium tier countries for normal transactions", domain.ErrConfiguration)
	}
	if cfg.WindowDays <= 0 {
		return nil, fmt.Errorf("%w: generator window must be positive, got %d days", domain.ErrConfiguration, cfg.WindowDays)
	}

	seed := time.Now().UnixNano()
	g := &Generator{
		cat:   cat,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(seed)),
		faker: gofakeit.New(seed),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate produces count transactions, round(count*highRiskFraction)
// of them in the high-risk bucket, sorted most recent first. Invalid
// parameters return an error with no partial output.
func (g *Generator) Generate(count int, highRiskFraction float64) ([]domain.Transaction, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: count must be non-negative, got %d", domain.ErrInvalidArgument, count)
	}
	if math.IsNaN(highRiskFraction) || highRiskFraction < 0 || highRiskFraction > 1 {
		return nil, fmt.Errorf("%w: high-risk fraction must be within [0, 1], got %v", domain.ErrInvalidArgument, highRiskFraction)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	highCount := int(math.Round(float64(count) * highRiskFraction))

	txs := make([]domain.Transaction, 0, count)
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		bucket := domain.RiskNormal
		if i < highCount {
			bucket = domain.RiskHigh
		}
		txs = append(txs, g.generateOne(bucket, seen))
	}

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp.After(txs[j].Timestamp)
	})
	return txs, nil
}

func (g *Generator) generateOne(bucket domain.RiskIndicator, seen map[string]struct{}) domain.Transaction {
	txType := transactionTypes[g.pickIndex(transactionTypeWeights)]
	country := g.pickCountry(bucket)
	currency, _ := g.cat.Currency(country)

	ranges, _ := g.cat.Ranges(txType)
	amountRange := ranges.Normal
	if bucket == domain.RiskHigh {
		amountRange = ranges.HighRisk
	}
	amount := g.drawAmount(amountRange)

	merchant := g.maybeMerchant(txType)

	tx := domain.Transaction{
		ID:            g.uniqueID("TXN", seen),
		CustomerID:    fmt.Sprintf("CUST-%08X", g.rng.Uint32()),
		Amount:        amount,
		Currency:      currency,
		Country:       country,
		Type:          txType,
		RiskIndicator: bucket,
		Status:        domain.StatusFlagged,
		Timestamp:     g.drawTimestamp(),
		Description:   g.describe(txType, bucket, merchant),
		CustomerInfo:  g.customerInfo(bucket),
		MerchantInfo:  merchant,
	}
	return tx
}

// pickCountry draws a jurisdiction tier per bucket, then a country
// uniformly within the tier. Empty tiers fall through to the next
// preference so sparse substitute catalogs still generate.
func (g *Generator) pickCountry(bucket domain.RiskIndicator) string {
	tiers, weights := normalBucketTiers, normalBucketTierWeights
	if bucket == domain.RiskHigh {
		tiers, weights = highBucketTiers, highBucketTierWeights
	}

	idx := g.pickIndex(weights)
	for offset := 0; offset < len(tiers); offset++ {
		countries := g.cat.Countries(tiers[(idx+offset)%len(tiers)])
		if len(countries) > 0 {
			return countries[g.rng.Intn(len(countries))]
		}
	}
	return "" // unreachable: New validated tier coverage
}

// drawAmount draws log-uniformly within [Floor, Ceiling) and floors to
// cents, so normal-bucket amounts never reach the high-risk floor.
func (g *Generator) drawAmount(r catalog.AmountRange) float64 {
	if r.Ceiling <= r.Floor {
		return r.Floor
	}
	v := r.Floor * math.Exp(g.rng.Float64()*math.Log(r.Ceiling/r.Floor))
	return math.Floor(v*100) / 100
}

func (g *Generator) drawTimestamp() time.Time {
	windowSeconds := int64(g.cfg.WindowDays) * 24 * 60 * 60
	return g.now().Add(-time.Duration(g.rng.Int63n(windowSeconds)) * time.Second)
}

func (g *Generator) customerInfo(bucket domain.RiskIndicator) *domain.CustomerInfo {
	profileWeights := normalProfileWeights
	if bucket == domain.RiskHigh {
		profileWeights = highBucketProfileWeights
	}

	accountTypes := g.cat.AccountTypes()
	accountType := ""
	if len(accountTypes) > 0 {
		weights := accountTypeWeights
		if len(accountTypes) != len(weights) {
			weights = uniformWeights(len(accountTypes))
		}
		accountType = accountTypes[g.pickIndex(weights)]
	}

	return &domain.CustomerInfo{
		Name:        g.faker.Name(),
		AccountType: accountType,
		RiskProfile: riskProfiles[g.pickIndex(profileWeights)],
	}
}

// maybeMerchant attaches merchant details to every payment and a share
// of transfers.
func (g *Generator) maybeMerchant(txType domain.TransactionType) *domain.MerchantInfo {
	if txType != domain.TypePayment &&
		!(txType == domain.TypeTransfer && g.rng.Float64() < merchantOnTransferProbability) {
		return nil
	}

	categories := g.cat.MerchantCategories()
	if len(categories) == 0 {
		return nil
	}
	category := categories[g.rng.Intn(len(categories))]

	name := g.faker.Company()
	if category == "Financial Services" {
		name += " " + g.pickString([]string{"Bank", "Financial", "Capital", "Investments", "Trust"})
	}

	return &domain.MerchantInfo{Name: name, Category: category}
}

func (g *Generator) uniqueID(prefix string, seen map[string]struct{}) string {
	for {
		id := fmt.Sprintf("%s-%08X", prefix, g.rng.Uint32())
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			return id
		}
	}
}

func (g *Generator) pickIndex(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := g.rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return i
		}
	}
	return len(weights) - 1
}

func (g *Generator) pickString(items []string) string {
	return items[g.rng.Intn(len(items))]
}

func uniformWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}
