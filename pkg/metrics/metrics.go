package metrics

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeCommitted  = "committed"
	OutcomeReverted   = "reverted"
	OutcomeSuccess    = "success"
	OutcomeFailure    = "failure"
	ContractClaimer   = "claimer"
	ContractVested    = "vested_claimer"
	ContractDistrib   = "distributor"
	ContractConverter = "converter"
)

// Metrics holds the airdrop counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ledgerTransactions *prometheus.CounterVec
	claims             *prometheus.CounterVec
	tokensPaid         *prometheus.CounterVec
	proofRequests      *prometheus.CounterVec
}

// New registers the airdrop counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ledgerTransactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "airdrop_ledger_transactions_total",
			Help: "The total number of ledger transactions by outcome",
		}, []string{"outcome"}),
		claims: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "airdrop_claims_total",
			Help: "The total number of claim and release attempts by contract and outcome",
		}, []string{"contract", "outcome"}),
		tokensPaid: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "airdrop_tokens_paid_total",
			Help: "The total number of token base units paid out by contract",
		}, []string{"contract"}),
		proofRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "airdrop_proof_requests_total",
			Help: "The total number of proof API requests by HTTP status",
		}, []string{"status"}),
	}
}

func outcome(err error, ok, failed string) string {
	if err != nil {
		return failed
	}
	return ok
}

func (m *Metrics) ObserveTransaction(err error) {
	if m == nil {
		return
	}
	m.ledgerTransactions.WithLabelValues(outcome(err, OutcomeCommitted, OutcomeReverted)).Inc()
}

func (m *Metrics) ObserveClaim(contract string, err error) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(contract, outcome(err, OutcomeSuccess, OutcomeFailure)).Inc()
}

// ObservePayout adds amount to the paid counter. Amounts beyond float64
// precision are approximated.
func (m *Metrics) ObservePayout(contract string, amount *uint256.Int) {
	if m == nil || amount == nil {
		return
	}
	f, _ := new(big.Float).SetInt(amount.ToBig()).Float64()
	m.tokensPaid.WithLabelValues(contract).Add(f)
}

func (m *Metrics) ObserveProofRequest(status string) {
	if m == nil {
		return
	}
	m.proofRequests.WithLabelValues(status).Inc()
}
