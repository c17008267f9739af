/*
Package models defines the JSON documents matcalc emits.

These models are used for:
- **HTTP API**: responses of the /multiply, /algorithms and /health endpoints.
- **CLI -json output**: benchmark, sweep and solver reports.
*/
package models

// MultiplyResponse is the result of one product of two random square
// matrices. The product itself is summarised by checksums.
type MultiplyResponse struct {
	Algorithm     string  `json:"algorithm"`
	N             int     `json:"n"`
	Seed          uint64  `json:"seed"`
	DurationMicro int64   `json:"duration_us"`
	Duration      string  `json:"duration"`
	Trace         float64 `json:"trace"`
	Frobenius     float64 `json:"frobenius"`
	NormInf       float64 `json:"norm_inf"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	// Error is the short error code or status text.
	Error string `json:"error"`
	// Message is a descriptive error message.
	Message string `json:"message,omitempty"`
}

// AlgorithmsResponse lists the registered strategies.
type AlgorithmsResponse struct {
	Algorithms []string `json:"algorithms"`
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// BenchmarkEntry is one strategy of a benchmark run.
type BenchmarkEntry struct {
	Algorithm    string  `json:"algorithm"`
	N            int     `json:"n"`
	Runs         int     `json:"runs"`
	AverageMicro int64   `json:"average_us"`
	Average      string  `json:"average"`
	MaxRelDiff   float64 `json:"max_rel_diff"`
	Error        string  `json:"error,omitempty"`
}

// BenchmarkReport is the -json output of -mode bench and -mode sweep.
type BenchmarkReport struct {
	Repetitions int              `json:"repetitions"`
	Consistent  bool             `json:"consistent"`
	Results     []BenchmarkEntry `json:"results"`
}

// RankEntry is one node of a PageRank ordering.
type RankEntry struct {
	Rank  int     `json:"rank"`
	Node  int     `json:"node"`
	Score float64 `json:"score"`
}

// SolverReport is the -json output of the solver modes. Fields that do not
// apply to a mode are omitted.
type SolverReport struct {
	Mode       string      `json:"mode"`
	N          int         `json:"n"`
	Algorithm  string      `json:"algorithm"`
	Iterations int         `json:"iterations,omitempty"`
	Delta      float64     `json:"delta,omitempty"`
	Duration   string      `json:"duration"`
	Ranking    []RankEntry `json:"ranking,omitempty"`
	// ExactDiff is the largest gap between the iterated and the exact
	// damped PageRank.
	ExactDiff float64 `json:"exact_diff,omitempty"`
	// SolutionError is the infinity-norm error of a Jacobi solution.
	SolutionError float64 `json:"solution_error,omitempty"`
	Trace         float64 `json:"trace,omitempty"`
	Frobenius     float64 `json:"frobenius,omitempty"`
}
