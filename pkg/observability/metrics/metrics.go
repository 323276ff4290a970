package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	referralsSent      atomic.Int64
	referralsScheduled atomic.Int64
	referralsCompleted atomic.Int64
	referralsCancelled atomic.Int64

	riskLow    atomic.Int64
	riskMedium atomic.Int64
	riskHigh   atomic.Int64

	rankingsServed atomic.Int64
)

func Init() {}

func ObserveReferralTransition(status string) {
	switch status {
	case "sent":
		referralsSent.Add(1)
	case "scheduled":
		referralsScheduled.Add(1)
	case "completed":
		referralsCompleted.Add(1)
	case "cancelled":
		referralsCancelled.Add(1)
	}
}

func ObserveRiskLevel(level string) {
	switch level {
	case "low":
		riskLow.Add(1)
	case "medium":
		riskMedium.Add(1)
	case "high":
		riskHigh.Add(1)
	}
}

func ObserveRankingServed() {
	rankingsServed.Add(1)
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP carebridge_referrals_sent_total Number of referrals created and transmitted.\n")
	fmt.Fprintf(w, "# TYPE carebridge_referrals_sent_total counter\n")
	fmt.Fprintf(w, "carebridge_referrals_sent_total %d\n", referralsSent.Load())

	fmt.Fprintf(w, "# HELP carebridge_referrals_scheduled_total Number of referrals scheduled.\n")
	fmt.Fprintf(w, "# TYPE carebridge_referrals_scheduled_total counter\n")
	fmt.Fprintf(w, "carebridge_referrals_scheduled_total %d\n", referralsScheduled.Load())

	fmt.Fprintf(w, "# HELP carebridge_referrals_completed_total Number of referrals completed.\n")
	fmt.Fprintf(w, "# TYPE carebridge_referrals_completed_total counter\n")
	fmt.Fprintf(w, "carebridge_referrals_completed_total %d\n", referralsCompleted.Load())

	fmt.Fprintf(w, "# HELP carebridge_referrals_cancelled_total Number of referrals cancelled.\n")
	fmt.Fprintf(w, "# TYPE carebridge_referrals_cancelled_total counter\n")
	fmt.Fprintf(w, "carebridge_referrals_cancelled_total %d\n", referralsCancelled.Load())

	fmt.Fprintf(w, "# HELP carebridge_risk_low_total Number of risk computations scored low.\n")
	fmt.Fprintf(w, "# TYPE carebridge_risk_low_total counter\n")
	fmt.Fprintf(w, "carebridge_risk_low_total %d\n", riskLow.Load())

	fmt.Fprintf(w, "# HELP carebridge_risk_medium_total Number of risk computations scored medium.\n")
	fmt.Fprintf(w, "# TYPE carebridge_risk_medium_total counter\n")
	fmt.Fprintf(w, "carebridge_risk_medium_total %d\n", riskMedium.Load())

	fmt.Fprintf(w, "# HELP carebridge_risk_high_total Number of risk computations scored high.\n")
	fmt.Fprintf(w, "# TYPE carebridge_risk_high_total counter\n")
	fmt.Fprintf(w, "carebridge_risk_high_total %d\n", riskHigh.Load())

	fmt.Fprintf(w, "# HELP carebridge_provider_rankings_total Number of provider ranking requests served.\n")
	fmt.Fprintf(w, "# TYPE carebridge_provider_rankings_total counter\n")
	fmt.Fprintf(w, "carebridge_provider_rankings_total %d\n", rankingsServed.Load())
}
