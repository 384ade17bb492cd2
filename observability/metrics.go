package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"signalbot/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const namespace = "signalbot"

// Metrics holds the Prometheus collectors of the bot
type Metrics struct {
	registry *prometheus.Registry

	balanceChanges  *prometheus.CounterVec
	balanceVolume   *prometheus.CounterVec
	bonusesGranted  *prometheus.CounterVec
	accountsCreated prometheus.Counter
	referralsLinked prometheus.Counter
	promosRedeemed  prometheus.Counter
	updatesHandled  *prometheus.CounterVec
}

// NewMetrics registers every collector on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		balanceChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_changes_total",
			Help:      "Committed balance changes by transaction type.",
		}, []string{"type"}),
		balanceVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_credited_points_total",
			Help:      "Points credited by transaction type.",
		}, []string{"type"}),
		bonusesGranted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bonuses_granted_total",
			Help:      "Start and referral bonuses granted.",
		}, []string{"type"}),
		accountsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_created_total",
			Help:      "Accounts created on first contact or import.",
		}),
		referralsLinked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "referrals_linked_total",
			Help:      "Referral edges created.",
		}),
		promosRedeemed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promos_redeemed_total",
			Help:      "Promo keyword redemptions.",
		}),
		updatesHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_updates_total",
			Help:      "Telegram updates handled by kind.",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.balanceChanges,
		m.balanceVolume,
		m.bonusesGranted,
		m.accountsCreated,
		m.referralsLinked,
		m.promosRedeemed,
		m.updatesHandled,
	)
	return m
}

// Attach feeds the ledger counters from committed events on bus
func (m *Metrics) Attach(bus *events.Bus) {
	bus.Subscribe(events.EventTypeBalanceChange, func(ctx context.Context, e events.Event) {
		if change, ok := e.(events.BalanceChangeEvent); ok {
			reason := string(change.TransactionType)
			m.balanceChanges.WithLabelValues(reason).Inc()
			if change.ChangeAmount > 0 {
				m.balanceVolume.WithLabelValues(reason).Add(float64(change.ChangeAmount))
			}
		}
	})
	bus.Subscribe(events.EventTypeBonusGranted, func(ctx context.Context, e events.Event) {
		if bonus, ok := e.(events.BonusGrantedEvent); ok {
			m.bonusesGranted.WithLabelValues(string(bonus.TransactionType)).Inc()
		}
	})
	bus.Subscribe(events.EventTypeAccountCreated, func(ctx context.Context, e events.Event) {
		m.accountsCreated.Inc()
	})
	bus.Subscribe(events.EventTypeReferralLinked, func(ctx context.Context, e events.Event) {
		m.referralsLinked.Inc()
	})
	bus.Subscribe(events.EventTypePromoRedeemed, func(ctx context.Context, e events.Event) {
		m.promosRedeemed.Inc()
	})
}

// ObserveUpdate counts one handled Telegram update
func (m *Metrics) ObserveUpdate(kind string) {
	m.updatesHandled.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until the returned cleanup function is called
func (m *Metrics) Serve(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("Metrics listener started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics listener failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("Metrics listener shutdown failed")
		}
	}
}
