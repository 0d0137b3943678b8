package service

import (
	"testing"
	"time"

	"github.com/ptmquan/certprep/internal/model"
)

func passedProfile(candidateID string, availableAt time.Time) model.CandidateProfile {
	score := 85
	return model.CandidateProfile{
		CandidateID:            candidateID,
		Entitled:               true,
		TestCompleted:          true,
		TestScore:              &score,
		TestPassed:             true,
		CertificateAvailableAt: &availableAt,
	}
}

func TestCheckAndIssueUnknownCandidate(t *testing.T) {
	svc := NewCertificateService(newFakeCandidateRepo(), newFakeClock(time.Now()))

	status, err := svc.CheckAndIssue("ghost")
	if err != nil {
		t.Fatalf("CheckAndIssue() error = %v", err)
	}
	if status.Status != "not_eligible" {
		t.Errorf("status = %q, want not_eligible", status.Status)
	}
}

func TestCheckAndIssueNeverPassed(t *testing.T) {
	repo := newFakeCandidateRepo()
	score := 40
	repo.profiles["cand-1"] = model.CandidateProfile{
		CandidateID:   "cand-1",
		Entitled:      true,
		TestCompleted: true,
		TestScore:     &score,
	}
	svc := NewCertificateService(repo, newFakeClock(time.Now()))

	status, err := svc.CheckAndIssue("cand-1")
	if err != nil {
		t.Fatalf("CheckAndIssue() error = %v", err)
	}
	if status.Status != "not_eligible" {
		t.Errorf("status = %q, want not_eligible after a fail", status.Status)
	}
	if status.Score == nil || *status.Score != 40 {
		t.Errorf("Score = %v, want the recorded 40", status.Score)
	}
}

func TestCheckAndIssueDelayBoundary(t *testing.T) {
	passedAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	availableAt := passedAt.Add(48 * time.Hour)

	tests := []struct {
		name       string
		now        time.Time
		wantStatus string
	}{
		{"just passed", passedAt, "processing"},
		{"one second early", availableAt.Add(-time.Second), "processing"},
		{"exactly on the boundary", availableAt, "issued"},
		{"well past the boundary", availableAt.Add(72 * time.Hour), "issued"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeCandidateRepo()
			repo.profiles["cand-1"] = passedProfile("cand-1", availableAt)
			svc := NewCertificateService(repo, newFakeClock(tt.now))

			status, err := svc.CheckAndIssue("cand-1")
			if err != nil {
				t.Fatalf("CheckAndIssue() error = %v", err)
			}
			if status.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status.Status, tt.wantStatus)
			}
			if tt.wantStatus == "issued" && status.Ref == "" {
				t.Error("issued certificate has no reference")
			}
			if tt.wantStatus == "processing" && status.Ref != "" {
				t.Errorf("processing certificate already carries ref %q", status.Ref)
			}
		})
	}
}

func TestCheckAndIssueIsIdempotent(t *testing.T) {
	repo := newFakeCandidateRepo()
	availableAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	repo.profiles["cand-1"] = passedProfile("cand-1", availableAt)
	svc := NewCertificateService(repo, newFakeClock(availableAt.Add(time.Hour)))

	first, err := svc.CheckAndIssue("cand-1")
	if err != nil {
		t.Fatalf("CheckAndIssue() error = %v", err)
	}
	second, err := svc.CheckAndIssue("cand-1")
	if err != nil {
		t.Fatalf("repeated CheckAndIssue() error = %v", err)
	}
	if first.Status != "issued" || second.Status != "issued" {
		t.Fatalf("statuses = %q, %q, want both issued", first.Status, second.Status)
	}
	if first.Ref != second.Ref {
		t.Errorf("refs differ across calls: %q vs %q", first.Ref, second.Ref)
	}
}

func TestCheckAndIssueLostRaceReturnsRecordedRef(t *testing.T) {
	repo := newFakeCandidateRepo()
	availableAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	profile := passedProfile("cand-1", availableAt)
	profile.CertificateIssued = true
	profile.CertificateRef = "cert-winner"
	repo.profiles["cand-1"] = profile
	svc := NewCertificateService(repo, newFakeClock(availableAt.Add(time.Hour)))

	status, err := svc.CheckAndIssue("cand-1")
	if err != nil {
		t.Fatalf("CheckAndIssue() error = %v", err)
	}
	if status.Status != "issued" || status.Ref != "cert-winner" {
		t.Errorf("status = %q ref = %q, want issued with the recorded cert-winner", status.Status, status.Ref)
	}
}
