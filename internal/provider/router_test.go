package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/jduhalde/consulting/internal/apperror"
	"github.com/jduhalde/consulting/internal/catalog"
	"github.com/jduhalde/consulting/internal/model"

	"github.com/rs/zerolog"
)

type fakeExecutor struct {
	provider string
	err      error
	calls    int
}

func (f *fakeExecutor) Execute(_ context.Context, agentID string, _ model.JobInput) (*Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Result{Provider: f.provider, Status: "completed", Output: map[string]any{"agent": agentID}}, nil
}

func routerWith(t *testing.T, defs []model.AgentDefinition, executors map[string]Executor) *Router {
	t.Helper()
	cat, err := catalog.New(defs)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return NewRouter(cat, executors, zerolog.Nop())
}

func threeProviderAgent() []model.AgentDefinition {
	return []model.AgentDefinition{{
		ID:                "contract_audit",
		Providers:         []string{"vertex", "azure", "aws"},
		PreferredProvider: "vertex",
		FallbackProvider:  "azure",
		IsActive:          true,
	}}
}

func TestSelectProviderPreferred(t *testing.T) {
	r := routerWith(t, threeProviderAgent(), nil)
	got, err := r.SelectProvider("contract_audit", Options{})
	if err != nil {
		t.Fatalf("SelectProvider: %v", err)
	}
	if got != "vertex" {
		t.Errorf("SelectProvider = %q, want vertex", got)
	}
}

func TestSelectProviderForce(t *testing.T) {
	r := routerWith(t, threeProviderAgent(), nil)
	got, err := r.SelectProvider("contract_audit", Options{ForceProvider: "aws"})
	if err != nil {
		t.Fatalf("SelectProvider: %v", err)
	}
	if got != "aws" {
		t.Errorf("SelectProvider = %q, want aws", got)
	}
}

func TestSelectProviderForceUnsupported(t *testing.T) {
	r := routerWith(t, threeProviderAgent(), nil)
	_, err := r.SelectProvider("contract_audit", Options{ForceProvider: "ibm"})
	if apperror.KindOf(err) != apperror.KindProviderNotSupported {
		t.Errorf("kind = %v, want ProviderNotSupported", apperror.KindOf(err))
	}
}

func TestSelectProviderUnknownAgent(t *testing.T) {
	r := routerWith(t, threeProviderAgent(), nil)
	_, err := r.SelectProvider("nope", Options{})
	if apperror.KindOf(err) != apperror.KindAgentNotFound {
		t.Errorf("kind = %v, want AgentNotFound", apperror.KindOf(err))
	}
}

func TestFallbackPrecedence(t *testing.T) {
	r := routerWith(t, threeProviderAgent(), nil)

	// Preferred failed: use the declared fallback.
	if got := r.FallbackProvider("contract_audit", "vertex"); got != "azure" {
		t.Errorf("fallback after vertex = %q, want azure", got)
	}
	// The declared fallback failed: first remaining provider in catalog order.
	if got := r.FallbackProvider("contract_audit", "azure"); got != "aws" {
		t.Errorf("fallback after azure = %q, want aws", got)
	}
	// Unknown agent fails safe.
	if got := r.FallbackProvider("nope", "vertex"); got != "" {
		t.Errorf("fallback for unknown agent = %q, want none", got)
	}
}

func TestFallbackExhausted(t *testing.T) {
	defs := []model.AgentDefinition{{
		ID:                "invoice_parser",
		Providers:         []string{"vertex", "azure"},
		PreferredProvider: "vertex",
		FallbackProvider:  "azure",
		IsActive:          true,
	}}
	r := routerWith(t, defs, nil)
	if got := r.FallbackProvider("invoice_parser", "azure"); got != "" {
		t.Errorf("fallback after azure = %q, want none", got)
	}
}

func TestExecuteWithProviderUnknown(t *testing.T) {
	r := routerWith(t, threeProviderAgent(), map[string]Executor{})
	_, err := r.ExecuteWithProvider(context.Background(), "ibm", "contract_audit", model.JobInput{})
	if apperror.KindOf(err) != apperror.KindUnknownProvider {
		t.Errorf("kind = %v, want UnknownProvider", apperror.KindOf(err))
	}
}

func TestExecuteWithFallbackPrimarySucceeds(t *testing.T) {
	vertex := &fakeExecutor{provider: "vertex"}
	azure := &fakeExecutor{provider: "azure"}
	r := routerWith(t, threeProviderAgent(), map[string]Executor{"vertex": vertex, "azure": azure})

	res, err := r.ExecuteWithFallback(context.Background(), "contract_audit", model.JobInput{}, Options{})
	if err != nil {
		t.Fatalf("ExecuteWithFallback: %v", err)
	}
	if res.UsedFallback || res.Provider != "vertex" {
		t.Errorf("unexpected result: %+v", res)
	}
	if azure.calls != 0 {
		t.Error("fallback executor must not run when the primary succeeds")
	}
}

func TestExecuteWithFallbackUsesFallback(t *testing.T) {
	vertex := &fakeExecutor{provider: "vertex", err: errors.New("vertex down")}
	azure := &fakeExecutor{provider: "azure"}
	r := routerWith(t, threeProviderAgent(), map[string]Executor{"vertex": vertex, "azure": azure})

	res, err := r.ExecuteWithFallback(context.Background(), "contract_audit", model.JobInput{}, Options{})
	if err != nil {
		t.Fatalf("ExecuteWithFallback: %v", err)
	}
	if !res.UsedFallback {
		t.Error("expected UsedFallback")
	}
	if res.Provider != "azure" || res.OriginalProvider != "vertex" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestExecuteWithFallbackTwoAttemptBound(t *testing.T) {
	// Three supported providers, but the protocol stops after two attempts.
	vertex := &fakeExecutor{provider: "vertex", err: errors.New("vertex down")}
	azure := &fakeExecutor{provider: "azure", err: errors.New("azure down")}
	aws := &fakeExecutor{provider: "aws"}
	r := routerWith(t, threeProviderAgent(), map[string]Executor{"vertex": vertex, "azure": azure, "aws": aws})

	_, err := r.ExecuteWithFallback(context.Background(), "contract_audit", model.JobInput{}, Options{})
	if apperror.KindOf(err) != apperror.KindAllProvidersFailed {
		t.Fatalf("kind = %v, want AllProvidersFailed", apperror.KindOf(err))
	}
	if vertex.calls != 1 || azure.calls != 1 {
		t.Errorf("attempt counts vertex=%d azure=%d, want 1 each", vertex.calls, azure.calls)
	}
	if aws.calls != 0 {
		t.Error("third provider must never be attempted")
	}

	var attempts *AttemptErrors
	if !errors.As(err, &attempts) {
		t.Fatal("expected AttemptErrors to be retrievable")
	}
	if attempts.PrimaryProvider != "vertex" || attempts.FallbackProvider != "azure" {
		t.Errorf("unexpected attempt providers: %+v", attempts)
	}
	if attempts.Primary == nil || attempts.Fallback == nil {
		t.Error("both underlying causes must be preserved")
	}
}

func TestExecuteWithFallbackNoFallbackAvailable(t *testing.T) {
	defs := []model.AgentDefinition{{
		ID:                "solo_agent",
		Providers:         []string{"vertex"},
		PreferredProvider: "vertex",
		IsActive:          true,
	}}
	vertex := &fakeExecutor{provider: "vertex", err: errors.New("vertex down")}
	r := routerWith(t, defs, map[string]Executor{"vertex": vertex})

	_, err := r.ExecuteWithFallback(context.Background(), "solo_agent", model.JobInput{}, Options{})
	if apperror.KindOf(err) != apperror.KindNoFallbackAvailable {
		t.Errorf("kind = %v, want NoFallbackAvailable", apperror.KindOf(err))
	}
}

func TestExecuteWithFallbackSelectionErrorPropagates(t *testing.T) {
	r := routerWith(t, threeProviderAgent(), map[string]Executor{})
	_, err := r.ExecuteWithFallback(context.Background(), "contract_audit", model.JobInput{}, Options{ForceProvider: "ibm"})
	if apperror.KindOf(err) != apperror.KindProviderNotSupported {
		t.Errorf("kind = %v, want ProviderNotSupported (no fallback on caller error)", apperror.KindOf(err))
	}
}
