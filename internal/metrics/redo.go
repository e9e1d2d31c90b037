package metrics

import (
	"strconv"
	"time"
)

// Generation records one orchestrated generation attempt. result is
// "success" or a failure kind.
func Generation(route, mode, result string, elapsed time.Duration) {
	New(Namespace).
		Dimension("Route", route).
		Dimension("Result", result).
		Duration("GenerationMs", elapsed).
		Count("GenerationCount").
		Property("mode", mode).
		Flush()
}

// Composite records one composite render.
func Composite(result string, bytes int, elapsed time.Duration) {
	New(Namespace).
		Dimension("Result", result).
		Duration("CompositeMs", elapsed).
		Metric("CompositeBytes", float64(bytes), UnitBytes).
		Flush()
}

// Request records one HTTP request handled by the API.
func Request(method, path string, status int, elapsed time.Duration) {
	New(Namespace).
		Dimension("Path", path).
		Dimension("StatusClass", strconv.Itoa(status/100)+"xx").
		Duration("RequestLatencyMs", elapsed).
		Count("RequestCount").
		Property("method", method).
		Property("status", status).
		Flush()
}

// Credits records a credit ledger operation ("reserve", "refund", "grant").
func Credits(op, result string) {
	New(Namespace).
		Dimension("Operation", op).
		Dimension("Result", result).
		Count("CreditOperation").
		Flush()
}
