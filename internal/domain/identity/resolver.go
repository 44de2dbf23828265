// Package identity resolves surgeon and patient display names for the
// scheduler. Name resolution deliberately never fails: a directory
// outage substitutes a deterministic placeholder and logs a warning,
// because blocking a surgical schedule on a name lookup is not an
// acceptable failure mode. Patient existence checks, by contrast, are
// allowed to fail the calling operation.
package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Directory is the upstream identity collaborator.
type Directory interface {
	SurgeonName(ctx context.Context, surgeonID uuid.UUID) (string, error)
	PatientName(ctx context.Context, patientID uuid.UUID) (string, error)
	PatientExists(ctx context.Context, patientID uuid.UUID) (bool, error)
}

// Resolver wraps a Directory with the placeholder degradation policy.
type Resolver struct {
	dir    Directory
	logger zerolog.Logger
}

func NewResolver(dir Directory, logger zerolog.Logger) *Resolver {
	return &Resolver{dir: dir, logger: logger}
}

func idPrefix(id uuid.UUID) string {
	return id.String()[:8]
}

// SurgeonName resolves a surgeon's display name. The second return
// value reports whether the directory answered; on failure the name is
// the "Surgeon {prefix}" placeholder.
func (r *Resolver) SurgeonName(ctx context.Context, surgeonID uuid.UUID) (string, bool) {
	name, err := r.dir.SurgeonName(ctx, surgeonID)
	if err != nil || name == "" {
		r.logger.Warn().Err(err).Str("surgeon_id", surgeonID.String()).
			Msg("could not resolve surgeon name, using placeholder")
		return "Surgeon " + idPrefix(surgeonID), false
	}
	return name, true
}

// PatientName resolves a patient's display name with the same
// degradation policy as SurgeonName.
func (r *Resolver) PatientName(ctx context.Context, patientID uuid.UUID) (string, bool) {
	name, err := r.dir.PatientName(ctx, patientID)
	if err != nil || name == "" {
		r.logger.Warn().Err(err).Str("patient_id", patientID.String()).
			Msg("could not resolve patient name, using placeholder")
		return "Patient " + idPrefix(patientID), false
	}
	return name, true
}

// PatientExists reports whether the patient record exists upstream.
func (r *Resolver) PatientExists(ctx context.Context, patientID uuid.UUID) (bool, error) {
	return r.dir.PatientExists(ctx, patientID)
}
