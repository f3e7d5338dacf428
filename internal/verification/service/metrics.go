package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeVerified = "verified"
	outcomeInvalid  = "invalid"
	outcomeExpired  = "expired"
	outcomeOrphaned = "contact_missing"
)

var (
	codesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agencyops_verification_codes_issued_total",
		Help: "Verification codes issued, by purpose",
	}, []string{"purpose"})

	validations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agencyops_verification_validations_total",
		Help: "Verification code validation attempts, by outcome",
	}, []string{"outcome"})

	codesPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agencyops_verification_codes_purged_total",
		Help: "Expired verification codes removed by the scheduled purge",
	})
)
