package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhooksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_webhooks_total",
		Help: "Webhook notifications by provider and outcome.",
	}, []string{"provider", "outcome"})

	CreditsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_credits_granted_total",
		Help: "Credits applied to user ledgers from payments.",
	}, []string{"provider"})

	SubscriptionsAssigned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscriptions_assigned_total",
		Help: "Subscription assignments by kind (new or extension).",
	}, []string{"kind"})

	ReferralAwards = promauto.NewCounter(prometheus.CounterOpts{
		Name: "referral_awards_total",
		Help: "Referral credits awarded.",
	})
)
