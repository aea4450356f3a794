// File path: internal/agent/registry_test.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

type stubProvider struct {
	name string
	ops  map[string]HandlerFunc
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Capabilities() []string {
	out := make([]string, 0, len(s.ops))
	for op := range s.ops {
		out = append(out, op)
	}
	return out
}

func (s *stubProvider) Handler(operation string) (HandlerFunc, bool) {
	handler, ok := s.ops[operation]
	return handler, ok
}

func echoProvider(name string) *stubProvider {
	return &stubProvider{
		name: name,
		ops: map[string]HandlerFunc{
			"echo": func(ctx context.Context, payload Payload) Result {
				return OK(Payload{"echo": payload["value"]})
			},
		},
	}
}

func TestRegisterValidation(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(nil); !errors.Is(err, ErrInvalidProvider) {
		t.Fatalf("Register(nil) = %v, want ErrInvalidProvider", err)
	}
	if err := registry.Register(&stubProvider{name: "  "}); !errors.Is(err, ErrInvalidProvider) {
		t.Fatalf("Register(empty name) = %v, want ErrInvalidProvider", err)
	}
	if err := registry.Register(&stubProvider{name: "bare"}); !errors.Is(err, ErrInvalidProvider) {
		t.Fatalf("Register(no capabilities) = %v, want ErrInvalidProvider", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(echoProvider("echo")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := registry.Register(echoProvider("echo")); !errors.Is(err, ErrDuplicateProvider) {
		t.Fatalf("duplicate Register = %v, want ErrDuplicateProvider", err)
	}
}

func TestDispatchUnknownProviderListsRegistered(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(echoProvider("echo")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	result := registry.Dispatch(context.Background(), "ghost", "echo", nil)
	if result.Success {
		t.Fatal("dispatch to unknown provider succeeded")
	}
	if result.ErrorCode != CodeUnknownAgent {
		t.Fatalf("ErrorCode = %s, want %s", result.ErrorCode, CodeUnknownAgent)
	}
	if want := "echo"; !strings.Contains(result.Error, want) {
		t.Fatalf("error %q does not list registered provider %q", result.Error, want)
	}
}

func TestDispatchUndeclaredOperation(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(echoProvider("echo")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	result := registry.Dispatch(context.Background(), "echo", "shout", nil)
	if result.Success {
		t.Fatal("dispatch of undeclared operation succeeded")
	}
	if result.ErrorCode != CodeUnsupportedAction {
		t.Fatalf("ErrorCode = %s, want %s", result.ErrorCode, CodeUnsupportedAction)
	}
	if !strings.Contains(result.Error, "echo") {
		t.Fatalf("error %q does not list capabilities", result.Error)
	}
	stats := registry.Stats()
	snapshot := stats.Providers["echo"]
	if snapshot.Requests != 1 || snapshot.Failed != 1 || snapshot.Succeeded != 0 {
		t.Fatalf("stats after undeclared op = %+v", snapshot)
	}
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	registry := NewRegistry()
	provider := &stubProvider{
		name: "volatile",
		ops: map[string]HandlerFunc{
			"explode": func(ctx context.Context, payload Payload) Result {
				panic("boom")
			},
		},
	}
	if err := registry.Register(provider); err != nil {
		t.Fatalf("Register: %v", err)
	}
	result := registry.Dispatch(context.Background(), "volatile", "explode", nil)
	if result.Success {
		t.Fatal("panicking handler reported success")
	}
	if result.ErrorCode != CodeDispatchError {
		t.Fatalf("ErrorCode = %s, want %s", result.ErrorCode, CodeDispatchError)
	}
	if !strings.Contains(result.Error, "boom") {
		t.Fatalf("error %q does not carry panic value", result.Error)
	}
}

func TestDispatchHonoursCancelledContext(t *testing.T) {
	registry := NewRegistry()
	invoked := false
	provider := &stubProvider{
		name: "slow",
		ops: map[string]HandlerFunc{
			"work": func(ctx context.Context, payload Payload) Result {
				invoked = true
				return OK(nil)
			},
		},
	}
	if err := registry.Register(provider); err != nil {
		t.Fatalf("Register: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := registry.Dispatch(ctx, "slow", "work", nil)
	if result.Success {
		t.Fatal("dispatch with cancelled context succeeded")
	}
	if invoked {
		t.Fatal("handler ran despite cancelled context")
	}
}

func TestDispatchSuccessCounters(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(echoProvider("echo")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	result := registry.Dispatch(context.Background(), "echo", "echo", Payload{"value": "hi"})
	if !result.Success {
		t.Fatalf("dispatch failed: %s", result.Error)
	}
	if got := result.String("echo"); got != "hi" {
		t.Fatalf("echo = %q, want %q", got, "hi")
	}
	stats := registry.Stats()
	if stats.ProviderCount != 1 || stats.TotalRequests != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	snapshot := stats.Providers["echo"]
	if snapshot.Succeeded != 1 || snapshot.Failed != 0 {
		t.Fatalf("provider stats = %+v", snapshot)
	}
}

func TestUnregister(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(echoProvider("echo")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := registry.Unregister("echo"); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if err := registry.Unregister("echo"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("second Unregister = %v, want ErrUnknownProvider", err)
	}
	result := registry.Dispatch(context.Background(), "echo", "echo", nil)
	if result.ErrorCode != CodeUnknownAgent {
		t.Fatalf("dispatch after unregister = %s, want %s", result.ErrorCode, CodeUnknownAgent)
	}
}

func TestConcurrentDispatch(t *testing.T) {
	registry := NewRegistry()
	const providers = 4
	for i := 0; i < providers; i++ {
		if err := registry.Register(echoProvider(fmt.Sprintf("echo-%d", i))); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	const rounds = 50
	var wg sync.WaitGroup
	for i := 0; i < providers; i++ {
		name := fmt.Sprintf("echo-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				if result := registry.Dispatch(context.Background(), name, "echo", Payload{"value": j}); !result.Success {
					t.Errorf("dispatch %s: %s", name, result.Error)
					return
				}
			}
		}()
	}
	wg.Wait()
	stats := registry.Stats()
	if stats.TotalRequests != providers*rounds {
		t.Fatalf("TotalRequests = %d, want %d", stats.TotalRequests, providers*rounds)
	}
}
