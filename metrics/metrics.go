package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/devine-os/kern-acceptor/types"
)

const (
	MetricsNamespace = "kat"
)

var (
	Debug                bool = true
	validResults              = []types.CheckStatus{types.CheckStatusPass, types.CheckStatusFail, types.CheckStatusError}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "checks_total",
		Help:      "Count of executed checks",
	}, []string{
		"run_id",
		"check",
		"kind",
		"result",
	})

	acceptanceResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "acceptance_results",
		Help:      "Result of acceptance runs",
	}, []string{
		"run_id",
		"result",
	})

	acceptanceCheckTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "acceptance_check_total",
		Help:      "Total number of acceptance checks",
	}, []string{
		"run_id",
	})

	acceptanceCheckPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "acceptance_check_passed",
		Help:      "Number of passed acceptance checks",
	}, []string{
		"run_id",
	})

	acceptanceCheckFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "acceptance_check_failed",
		Help:      "Number of failed acceptance checks",
	}, []string{
		"run_id",
	})

	acceptanceCheckErrored = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "acceptance_check_errored",
		Help:      "Number of errored acceptance checks",
	}, []string{
		"run_id",
	})

	acceptanceRunDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "acceptance_run_duration",
		Help:      "Duration of acceptance runs",
	}, []string{
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		zap.L().Debug("metric inc",
			zap.String("m", "errors_total"),
			zap.String("error", error),
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordCheck records the outcome of one check
func RecordCheck(runID string, check string, kind types.CheckKind, result types.CheckStatus) {
	if !isValidResult(result) {
		zap.L().Error("RecordCheck - invalid result", zap.String("result", string(result)))
		return
	}
	if Debug {
		zap.L().Debug("metric inc",
			zap.String("m", "checks_total"),
			zap.String("run_id", runID),
			zap.String("check", check),
			zap.String("kind", string(kind)),
			zap.String("result", string(result)))
	}
	checksTotal.WithLabelValues(runID, check, string(kind), string(result)).Inc()
}

// RecordAcceptance records the roll-up of one full run
func RecordAcceptance(
	runID string,
	result string,
	total int,
	passed int,
	failed int,
	errored int,
	duration time.Duration,
) {
	acceptanceResults.WithLabelValues(runID, result).Set(1)
	acceptanceCheckTotal.WithLabelValues(runID).Add(float64(total))
	acceptanceCheckPassed.WithLabelValues(runID).Add(float64(passed))
	acceptanceCheckFailed.WithLabelValues(runID).Add(float64(failed))
	acceptanceCheckErrored.WithLabelValues(runID).Add(float64(errored))
	acceptanceRunDuration.WithLabelValues(runID).Set(duration.Seconds())
}

func isValidResult(result types.CheckStatus) bool {
	return slices.Contains(validResults, result)
}
