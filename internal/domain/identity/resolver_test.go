package identity

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type stubDirectory struct {
	surgeonName string
	patientName string
	exists      bool
	err         error
}

func (s *stubDirectory) SurgeonName(_ context.Context, _ uuid.UUID) (string, error) {
	return s.surgeonName, s.err
}

func (s *stubDirectory) PatientName(_ context.Context, _ uuid.UUID) (string, error) {
	return s.patientName, s.err
}

func (s *stubDirectory) PatientExists(_ context.Context, _ uuid.UUID) (bool, error) {
	return s.exists, s.err
}

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func TestSurgeonNameResolved(t *testing.T) {
	r := NewResolver(&stubDirectory{surgeonName: "Dr. Ada Osei"}, testLogger())
	name, ok := r.SurgeonName(context.Background(), uuid.New())
	if !ok || name != "Dr. Ada Osei" {
		t.Errorf("got %q/%v", name, ok)
	}
}

func TestSurgeonNamePlaceholderOnError(t *testing.T) {
	r := NewResolver(&stubDirectory{err: errors.New("directory down")}, testLogger())
	id := uuid.New()
	name, ok := r.SurgeonName(context.Background(), id)
	if ok {
		t.Error("resolution should report failure")
	}
	want := "Surgeon " + id.String()[:8]
	if name != want {
		t.Errorf("placeholder = %q, want %q", name, want)
	}
}

func TestPatientNamePlaceholderOnEmpty(t *testing.T) {
	r := NewResolver(&stubDirectory{patientName: ""}, testLogger())
	id := uuid.New()
	name, ok := r.PatientName(context.Background(), id)
	if ok {
		t.Error("empty name should count as unresolved")
	}
	if !strings.HasPrefix(name, "Patient ") {
		t.Errorf("placeholder = %q", name)
	}
}

func TestPatientExistsPropagatesError(t *testing.T) {
	r := NewResolver(&stubDirectory{err: errors.New("boom")}, testLogger())
	if _, err := r.PatientExists(context.Background(), uuid.New()); err == nil {
		t.Error("existence check must propagate errors")
	}
}
