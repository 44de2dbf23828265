package prediction

import (
	"strings"

	"github.com/google/uuid"
)

// baselineDurations holds typical case minutes by procedure code.
var baselineDurations = map[string]int{
	"CHOL": 90,  // laparoscopic cholecystectomy
	"APPY": 60,  // appendectomy
	"CABG": 240, // coronary artery bypass
	"TKR":  120, // total knee replacement
	"THR":  150, // total hip replacement
	"CRAN": 180, // craniotomy
	"LAPA": 75,  // diagnostic laparoscopy
}

const defaultBaseline = 90

// BaselineDuration returns the typical minutes for a procedure code.
// Codes match case-insensitively.
func BaselineDuration(code string) int {
	if d, ok := baselineDurations[strings.ToUpper(code)]; ok {
		return d
	}
	return defaultBaseline
}

// anesthesiaFactors scales the estimate by induction/recovery overhead.
var anesthesiaFactors = map[string]float64{
	"general":  1.0,
	"regional": 0.95,
	"local":    0.85,
	"sedation": 0.90,
	"none":     0.80,
}

// PatientFactors is deliberately coarse: only the attributes known to
// move OR time.
type PatientFactors struct {
	Age            int      `json:"age"`
	BMI            float64  `json:"bmi"`
	ASAClass       int      `json:"asaClass"`
	Comorbidities  []string `json:"comorbidities"`
	PriorSurgeries int      `json:"priorSurgeries"`
}

// FactorDetail explains one multiplier in the estimate.
type FactorDetail struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Detail string  `json:"detail"`
}

// ConfidenceInterval bounds a duration estimate in minutes.
type ConfidenceInterval struct {
	LowerBound int `json:"lowerBound"`
	UpperBound int `json:"upperBound"`
}

// DurationPrediction is the full predictor output.
type DurationPrediction struct {
	ProcedureCode      string             `json:"procedureCode"`
	SurgeonID          uuid.UUID          `json:"surgeonId"`
	PredictedDuration  int                `json:"predictedDuration"`
	BaselineDuration   int                `json:"baselineDuration"`
	ConfidenceInterval ConfidenceInterval `json:"confidenceInterval"`
	Confidence         float64            `json:"confidence"`
	SampleSize         int                `json:"sampleSize"`
	HistoricalMean     *float64           `json:"historicalMean,omitempty"`
	Factors            []FactorDetail     `json:"factors"`
}

// RiskLevel buckets a cancellation probability.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Recommendation is an advisory mitigation with the probability
// reduction it is expected to buy.
type Recommendation struct {
	Action                string  `json:"action"`
	Priority              string  `json:"priority"` // low | medium | high
	ExpectedRiskReduction float64 `json:"expectedRiskReduction"`
}

// CancellationPrediction reports cancellation risk for a case.
type CancellationPrediction struct {
	CaseID          uuid.UUID        `json:"caseId"`
	Probability     float64          `json:"probability"`
	RiskLevel       RiskLevel        `json:"riskLevel"`
	Factors         []string         `json:"factors"`
	Recommendations []Recommendation `json:"recommendations"`
}
