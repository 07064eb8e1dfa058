package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jduhalde/consulting/internal/apperror"
	"github.com/jduhalde/consulting/internal/catalog"
	"github.com/jduhalde/consulting/internal/metrics"
	"github.com/jduhalde/consulting/internal/model"
	"github.com/jduhalde/consulting/internal/repository"
)

type fakeJobRepo struct {
	jobs      map[string]*model.Job
	createErr error
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: map[string]*model.Job{}}
}

func (f *fakeJobRepo) CreateJob(_ context.Context, j *model.Job) error {
	if f.createErr != nil {
		return f.createErr
	}
	cp := *j
	f.jobs[j.ID] = &cp
	return nil
}

func (f *fakeJobRepo) GetJobByID(_ context.Context, userID, jobID string) (*model.Job, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.UserID != userID {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (f *fakeJobRepo) GetJobForExecution(_ context.Context, jobID string) (*model.Job, error) {
	j, ok := f.jobs[jobID]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (f *fakeJobRepo) ListJobs(_ context.Context, userID string, _ repository.JobFilter) ([]model.Job, error) {
	var out []model.Job
	for _, j := range f.jobs {
		if j.UserID == userID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (f *fakeJobRepo) MarkProcessing(_ context.Context, jobID string) (bool, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.Status != model.JobQueued {
		return false, nil
	}
	j.Status = model.JobProcessing
	return true, nil
}

func (f *fakeJobRepo) MarkCompleted(_ context.Context, jobID, provider string, usedFallback bool, result map[string]any) (bool, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.Status != model.JobProcessing {
		return false, nil
	}
	j.Status = model.JobCompleted
	j.Provider = provider
	j.UsedFallback = usedFallback
	j.Result = result
	return true, nil
}

func (f *fakeJobRepo) MarkFailed(_ context.Context, jobID string, details map[string]string) (bool, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.Status != model.JobProcessing {
		return false, nil
	}
	j.Status = model.JobFailed
	j.ErrorDetails = details
	return true, nil
}

func (f *fakeJobRepo) CancelJob(_ context.Context, userID, jobID string) (bool, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.UserID != userID || !j.Status.Cancellable() {
		return false, nil
	}
	j.Status = model.JobCancelled
	return true, nil
}

type fakeUserRepo struct {
	users  map[string]*model.User
	getErr error
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, _ string, _ repository.UserProfilePatch) error {
	return nil
}

func (f *fakeUserRepo) IncrementUsage(_ context.Context, id string, cost float64) error {
	if u, ok := f.users[id]; ok {
		u.TotalCostThisMonth += cost
		u.TotalRequestsThisMonth++
	}
	return nil
}

type fakeCostService struct {
	estimate   float64
	canExecute bool
	tracked    int
}

func (f *fakeCostService) EstimateCost(string, model.JobInput) float64 { return f.estimate }
func (f *fakeCostService) CanUserExecute(context.Context, string, float64) bool {
	return f.canExecute
}
func (f *fakeCostService) TrackCost(context.Context, string, string, string, string, float64) {
	f.tracked++
}
func (f *fakeCostService) GetUserMonthlyCost(context.Context, string) float64 { return 0 }

type fakePublisher struct {
	published [][]byte
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, _ string, payload []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.published = append(f.published, payload)
	return "msg-1", nil
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]model.AgentDefinition{
		{
			ID: "facturas_afip", Name: "Facturas AFIP", Category: "fiscal",
			Providers: []string{"vertex", "azure"}, PreferredProvider: "vertex",
			FallbackProvider: "azure", CostPerRun: 0.50, AvgProcessingTime: 45,
			IsActive: true,
		},
		{
			ID: "vision_qa", Name: "Vision QA", Category: "industrial",
			Providers: []string{"vertex", "azure"}, PreferredProvider: "vertex",
			CostPerRun: 0.003, AvgProcessingTime: 2, IsActive: false,
		},
	})
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}
	return cat
}

func activeUser(role model.Role, features ...string) *model.User {
	return &model.User{
		UserID: "user-1", Role: role, Status: model.StatusPaid, Features: features,
	}
}

type jobFixture struct {
	svc       JobService
	jobs      *fakeJobRepo
	users     *fakeUserRepo
	costs     *fakeCostService
	publisher *fakePublisher
}

func newJobFixture(t *testing.T, user *model.User) *jobFixture {
	t.Helper()
	f := &jobFixture{
		jobs:      newFakeJobRepo(),
		users:     &fakeUserRepo{users: map[string]*model.User{}},
		costs:     &fakeCostService{estimate: 0.50, canExecute: true},
		publisher: &fakePublisher{},
	}
	if user != nil {
		f.users.users[user.UserID] = user
	}
	f.svc = NewJobService(f.jobs, f.users, testCatalog(t), f.costs, f.publisher,
		"job-created", metrics.New(), zerolog.Nop())
	return f
}

func TestCreateJobSuccess(t *testing.T) {
	f := newJobFixture(t, activeUser(model.RoleClientPro, "facturas_afip"))

	res, err := f.svc.CreateJob(context.Background(), "user-1", "facturas_afip", model.JobInput{
		Data:  map[string]any{"period": "2026-07"},
		Files: []string{"users/user-1/uploads/1_a.pdf"},
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if res.Status != model.JobQueued {
		t.Errorf("Status = %s, want queued", res.Status)
	}
	if res.EstimatedCost != 0.50 {
		t.Errorf("EstimatedCost = %v, want 0.50", res.EstimatedCost)
	}
	if res.EstimatedTime != 45 {
		t.Errorf("EstimatedTime = %v, want 45", res.EstimatedTime)
	}

	stored := f.jobs.jobs[res.JobID]
	if stored == nil {
		t.Fatal("job was not persisted")
	}
	if stored.AgentName != "Facturas AFIP" {
		t.Errorf("AgentName = %q", stored.AgentName)
	}
	if stored.Provider != "vertex" {
		t.Errorf("Provider = %q, want the agent's preferred provider", stored.Provider)
	}
	if len(f.publisher.published) != 1 {
		t.Errorf("published %d events, want 1", len(f.publisher.published))
	}
}

func TestCreateJobMissingAgentID(t *testing.T) {
	f := newJobFixture(t, activeUser(model.RoleClientPro, "facturas_afip"))
	_, err := f.svc.CreateJob(context.Background(), "user-1", "", model.JobInput{})
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Fatalf("kind = %s, want ValidationError", apperror.KindOf(err))
	}
}

func TestCreateJobUnknownUser(t *testing.T) {
	f := newJobFixture(t, nil)
	_, err := f.svc.CreateJob(context.Background(), "ghost", "facturas_afip", model.JobInput{})
	if apperror.KindOf(err) != apperror.KindUserNotFound {
		t.Fatalf("kind = %s, want UserNotFound", apperror.KindOf(err))
	}
}

func TestCreateJobFeatureGate(t *testing.T) {
	f := newJobFixture(t, activeUser(model.RoleClientBasic, "chatbot_comercial"))
	_, err := f.svc.CreateJob(context.Background(), "user-1", "facturas_afip", model.JobInput{})
	if apperror.KindOf(err) != apperror.KindFeatureNotAvailable {
		t.Fatalf("kind = %s, want FeatureNotAvailable", apperror.KindOf(err))
	}
}

func TestCreateJobAdminBypassesFeatureGate(t *testing.T) {
	f := newJobFixture(t, activeUser(model.RoleAdmin))
	_, err := f.svc.CreateJob(context.Background(), "user-1", "facturas_afip", model.JobInput{})
	if err != nil {
		t.Fatalf("CreateJob for admin: %v", err)
	}
}

func TestCreateJobInactiveAccount(t *testing.T) {
	user := activeUser(model.RoleClientPro, "facturas_afip")
	user.Status = model.StatusSuspended
	f := newJobFixture(t, user)
	_, err := f.svc.CreateJob(context.Background(), "user-1", "facturas_afip", model.JobInput{})
	if apperror.KindOf(err) != apperror.KindAccountInactive {
		t.Fatalf("kind = %s, want AccountInactive", apperror.KindOf(err))
	}
}

func TestCreateJobInactiveAgent(t *testing.T) {
	f := newJobFixture(t, activeUser(model.RoleClientPro, "vision_qa"))
	_, err := f.svc.CreateJob(context.Background(), "user-1", "vision_qa", model.JobInput{})
	if apperror.KindOf(err) != apperror.KindAgentUnavailable {
		t.Fatalf("kind = %s, want AgentUnavailable", apperror.KindOf(err))
	}
}

func TestCreateJobUnknownAgent(t *testing.T) {
	f := newJobFixture(t, activeUser(model.RoleAdmin))
	_, err := f.svc.CreateJob(context.Background(), "user-1", "nope", model.JobInput{})
	if apperror.KindOf(err) != apperror.KindAgentUnavailable {
		t.Fatalf("kind = %s, want AgentUnavailable", apperror.KindOf(err))
	}
}

func TestCreateJobSpendingLimit(t *testing.T) {
	f := newJobFixture(t, activeUser(model.RoleClientDemo, "facturas_afip"))
	f.costs.canExecute = false
	_, err := f.svc.CreateJob(context.Background(), "user-1", "facturas_afip", model.JobInput{})
	if apperror.KindOf(err) != apperror.KindSpendingLimit {
		t.Fatalf("kind = %s, want SpendingLimitExceeded", apperror.KindOf(err))
	}
	if len(f.jobs.jobs) != 0 {
		t.Error("job persisted despite spending rejection")
	}
}

func TestCreateJobCheckOrderFeatureBeforeStatus(t *testing.T) {
	// A suspended user without the feature must see the feature error first.
	user := activeUser(model.RoleClientBasic)
	user.Status = model.StatusSuspended
	f := newJobFixture(t, user)
	_, err := f.svc.CreateJob(context.Background(), "user-1", "facturas_afip", model.JobInput{})
	if apperror.KindOf(err) != apperror.KindFeatureNotAvailable {
		t.Fatalf("kind = %s, want FeatureNotAvailable checked before AccountInactive", apperror.KindOf(err))
	}
}

func TestCreateJobPublishFailureStillSucceeds(t *testing.T) {
	f := newJobFixture(t, activeUser(model.RoleClientPro, "facturas_afip"))
	f.publisher.err = errors.New("pubsub down")
	res, err := f.svc.CreateJob(context.Background(), "user-1", "facturas_afip", model.JobInput{})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if f.jobs.jobs[res.JobID] == nil {
		t.Fatal("job not persisted")
	}
}

func TestCreateJobUserLoadError(t *testing.T) {
	f := newJobFixture(t, nil)
	f.users.getErr = errors.New("db down")
	_, err := f.svc.CreateJob(context.Background(), "user-1", "facturas_afip", model.JobInput{})
	if apperror.KindOf(err) != apperror.KindStoreUnavailable {
		t.Fatalf("kind = %s, want StoreUnavailable", apperror.KindOf(err))
	}
}

func TestGetJobNotFound(t *testing.T) {
	f := newJobFixture(t, activeUser(model.RoleClientPro, "facturas_afip"))
	_, err := f.svc.GetJob(context.Background(), "user-1", "missing")
	if apperror.KindOf(err) != apperror.KindJobNotFound {
		t.Fatalf("kind = %s, want JobNotFound", apperror.KindOf(err))
	}
}

func TestGetJobOwnerScoped(t *testing.T) {
	f := newJobFixture(t, activeUser(model.RoleClientPro, "facturas_afip"))
	res, err := f.svc.CreateJob(context.Background(), "user-1", "facturas_afip", model.JobInput{})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if _, err := f.svc.GetJob(context.Background(), "user-2", res.JobID); apperror.KindOf(err) != apperror.KindJobNotFound {
		t.Fatalf("another user's job must read as not found, got %v", err)
	}
}

func TestCancelQueuedJob(t *testing.T) {
	f := newJobFixture(t, activeUser(model.RoleClientPro, "facturas_afip"))
	res, err := f.svc.CreateJob(context.Background(), "user-1", "facturas_afip", model.JobInput{})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	job, err := f.svc.CancelJob(context.Background(), "user-1", res.JobID)
	if err != nil {
		t.Fatalf("CancelJob: %v", err)
	}
	if job.Status != model.JobCancelled {
		t.Errorf("Status = %s, want cancelled", job.Status)
	}
}

func TestCancelCompletedJobRejected(t *testing.T) {
	f := newJobFixture(t, activeUser(model.RoleClientPro, "facturas_afip"))
	res, err := f.svc.CreateJob(context.Background(), "user-1", "facturas_afip", model.JobInput{})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	f.jobs.jobs[res.JobID].Status = model.JobCompleted

	_, err = f.svc.CancelJob(context.Background(), "user-1", res.JobID)
	if apperror.KindOf(err) != apperror.KindInvalidTransition {
		t.Fatalf("kind = %s, want InvalidTransition", apperror.KindOf(err))
	}
}

func TestCancelMissingJob(t *testing.T) {
	f := newJobFixture(t, activeUser(model.RoleClientPro, "facturas_afip"))
	_, err := f.svc.CancelJob(context.Background(), "user-1", "missing")
	if apperror.KindOf(err) != apperror.KindJobNotFound {
		t.Fatalf("kind = %s, want JobNotFound", apperror.KindOf(err))
	}
}
