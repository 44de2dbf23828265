package prediction

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orflow/orflow/internal/domain/surgery"
	"github.com/orflow/orflow/internal/platform/metrics"
	"github.com/orflow/orflow/pkg/errs"
)

// CaseSource supplies scheduled cases and patient cancellation history.
type CaseSource interface {
	GetCase(ctx context.Context, id uuid.UUID) (*surgery.Case, error)
	NoShowRate(ctx context.Context, patientID uuid.UUID) (float64, error)
}

// HistorySource supplies observed durations for a procedure/surgeon pair.
type HistorySource interface {
	Samples(ctx context.Context, procedureCode string, surgeonID uuid.UUID) ([]int, error)
}

type Service struct {
	cases   CaseSource
	history HistorySource
	logger  zerolog.Logger

	riskHigh   float64
	riskMedium float64
}

func NewService(cases CaseSource, history HistorySource, logger zerolog.Logger, riskHigh, riskMedium float64) *Service {
	return &Service{cases: cases, history: history, logger: logger, riskHigh: riskHigh, riskMedium: riskMedium}
}

// DurationRequest identifies the case to predict either by id or by an
// explicit procedure/surgeon pair.
type DurationRequest struct {
	CaseID         *uuid.UUID
	ProcedureCode  string
	SurgeonID      uuid.UUID
	AnesthesiaType string
	Patient        *PatientFactors
}

// complexityFactor is additive over patient attributes, starting at 1.0.
func complexityFactor(p *PatientFactors) (float64, []string) {
	f := 1.0
	var notes []string
	if p == nil {
		return f, notes
	}
	// The tier increments stack: an 85-year-old earns both age bumps.
	if p.Age > 70 {
		f += 0.10
		notes = append(notes, "age > 70 (+0.10)")
	}
	if p.Age > 80 {
		f += 0.15
		notes = append(notes, "age > 80 (+0.15)")
	}
	if p.BMI > 35 {
		f += 0.10
		notes = append(notes, "BMI > 35 (+0.10)")
	}
	if p.BMI > 40 {
		f += 0.15
		notes = append(notes, "BMI > 40 (+0.15)")
	}
	if p.ASAClass >= 3 {
		f += 0.10
		notes = append(notes, "ASA >= 3 (+0.10)")
	}
	if p.ASAClass >= 4 {
		f += 0.20
		notes = append(notes, "ASA >= 4 (+0.20)")
	}
	if n := len(p.Comorbidities); n > 0 {
		f += 0.05 * float64(n)
		notes = append(notes, fmt.Sprintf("%d comorbidities (+%.2f)", n, 0.05*float64(n)))
	}
	if p.PriorSurgeries > 2 {
		f += 0.10
		notes = append(notes, "more than 2 prior surgeries (+0.10)")
	}
	return f, notes
}

// ciWidth narrows the interval as the historical sample grows.
func ciWidth(sampleSize int) float64 {
	switch {
	case sampleSize > 10:
		return 0.15
	case sampleSize > 5:
		return 0.20
	default:
		return 0.30
	}
}

// PredictDuration estimates case minutes as
// baseline x surgeon x complexity x anesthesia. The surgeon factor is
// the ratio of the surgeon's historical mean for the procedure to the
// baseline, 1.0 with no history.
func (s *Service) PredictDuration(ctx context.Context, req DurationRequest) (*DurationPrediction, error) {
	if req.CaseID != nil {
		c, err := s.cases.GetCase(ctx, *req.CaseID)
		if err != nil {
			return nil, err
		}
		req.ProcedureCode = c.ProcedureCode
		req.SurgeonID = c.PrimarySurgeonID
		if req.AnesthesiaType == "" {
			req.AnesthesiaType = c.AnesthesiaType
		}
	}
	if req.ProcedureCode == "" || req.SurgeonID == uuid.Nil {
		return nil, errs.BadRequest("either caseId or procedureCode and surgeonId are required")
	}

	baseline := BaselineDuration(req.ProcedureCode)

	samples, err := s.history.Samples(ctx, req.ProcedureCode, req.SurgeonID)
	if err != nil {
		return nil, err
	}
	n := len(samples)

	surgeonFactor := 1.0
	var histMean *float64
	if n > 0 {
		sum := 0
		for _, d := range samples {
			sum += d
		}
		mean := float64(sum) / float64(n)
		histMean = &mean
		surgeonFactor = mean / float64(baseline)
	}

	complexity, complexityNotes := complexityFactor(req.Patient)

	anesthesia := 1.0
	if req.AnesthesiaType != "" {
		f, ok := anesthesiaFactors[req.AnesthesiaType]
		if !ok {
			return nil, errs.BadRequest("invalid anesthesia type %q", req.AnesthesiaType)
		}
		anesthesia = f
	}

	predicted := int(math.Round(float64(baseline) * surgeonFactor * complexity * anesthesia))
	width := ciWidth(n)

	out := &DurationPrediction{
		ProcedureCode:     req.ProcedureCode,
		SurgeonID:         req.SurgeonID,
		PredictedDuration: predicted,
		BaselineDuration:  baseline,
		ConfidenceInterval: ConfidenceInterval{
			LowerBound: int(math.Round(float64(predicted) * (1 - width))),
			UpperBound: int(math.Round(float64(predicted) * (1 + width))),
		},
		Confidence:     math.Min(0.95, 0.7+0.025*float64(n)),
		SampleSize:     n,
		HistoricalMean: histMean,
		Factors: []FactorDetail{
			{Name: "surgeon", Value: round2(surgeonFactor), Detail: fmt.Sprintf("%d historical cases", n)},
			{Name: "complexity", Value: round2(complexity), Detail: joinOr(complexityNotes, "no patient factors supplied")},
			{Name: "anesthesia", Value: anesthesia, Detail: req.AnesthesiaType},
		},
	}

	metrics.IncDurationPrediction()
	return out, nil
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

func joinOr(notes []string, fallback string) string {
	if len(notes) == 0 {
		return fallback
	}
	out := notes[0]
	for _, n := range notes[1:] {
		out += "; " + n
	}
	return out
}

// PredictCancellation scores a case's cancellation risk from lead time,
// priority, preference mismatch and the patient's real cancellation
// history.
func (s *Service) PredictCancellation(ctx context.Context, caseID uuid.UUID) (*CancellationPrediction, error) {
	c, err := s.cases.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	probability := 0.05
	factors := []string{"baseline risk (0.05)"}

	daysToSurgery := time.Until(c.ScheduledDate).Hours() / 24
	if daysToSurgery > 30 {
		probability += 0.02
		factors = append(factors, "scheduled more than 30 days out (+0.02)")
	}
	if c.Priority == surgery.PriorityElective {
		probability += 0.03
		factors = append(factors, "elective case (+0.03)")
	}
	if c.PatientPreferences != nil && c.PatientPreferences.PreferredTime == "morning" &&
		c.EstimatedStartTime != nil && c.EstimatedStartTime.Hour() >= 12 {
		probability += 0.02
		factors = append(factors, "morning preference with afternoon start (+0.02)")
	}

	noShow, err := s.cases.NoShowRate(ctx, c.PatientID)
	if err != nil {
		return nil, err
	}
	if noShow > 0 {
		probability += noShow / 2
		factors = append(factors, fmt.Sprintf("patient no-show history %.0f%% (+%.3f)", noShow*100, noShow/2))
	}

	if probability > 0.5 {
		probability = 0.5
	}
	probability = math.Round(probability*1000) / 1000

	level := RiskLow
	switch {
	case probability > s.riskHigh:
		level = RiskHigh
	case probability > s.riskMedium:
		level = RiskMedium
	}

	var recs []Recommendation
	if daysToSurgery > 7 {
		recs = append(recs, Recommendation{
			Action:                "Schedule confirmation call 48-72 hours before surgery",
			Priority:              "high",
			ExpectedRiskReduction: 0.03,
		})
	}
	if c.PatientPreferences != nil && c.PatientPreferences.InterpreterNeeded {
		recs = append(recs, Recommendation{
			Action:                "Confirm interpreter availability and send pre-op instructions in patient language",
			Priority:              "medium",
			ExpectedRiskReduction: 0.02,
		})
	}
	if level != RiskLow {
		recs = append(recs, Recommendation{
			Action:                "Send text message reminder with preparation instructions",
			Priority:              "medium",
			ExpectedRiskReduction: 0.02,
		})
	}

	s.logger.Debug().
		Str("case_id", caseID.String()).
		Float64("probability", probability).
		Str("risk", string(level)).
		Msg("cancellation prediction")

	return &CancellationPrediction{
		CaseID:          caseID,
		Probability:     probability,
		RiskLevel:       level,
		Factors:         factors,
		Recommendations: recs,
	}, nil
}
