// 认证域 Prometheus 指标
package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 包级注册，避免多个 Handler/Service 实例重复注册
var (
	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "accounts",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Total login attempts by result",
		},
		[]string{"result"}, // success / failure / blocked / unverified
	)

	otpIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "accounts",
			Subsystem: "auth",
			Name:      "otp_issued_total",
			Help:      "Total OTP challenges issued by purpose",
		},
		[]string{"purpose"},
	)

	otpValidatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "accounts",
			Subsystem: "auth",
			Name:      "otp_validated_total",
			Help:      "Total OTP validation attempts by purpose and result",
		},
		[]string{"purpose", "result"}, // result: success / invalid / expired
	)
)
