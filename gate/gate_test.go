package gate_test

import (
	"context"
	"testing"

	"github.com/diewo77/sales-portal/gate"
)

// mockPolicy is a simple policy for testing with uint user type.
type mockPolicy struct {
	allowAll bool
}

func (p *mockPolicy) Can(_ context.Context, _ uint, _ gate.Action, _ any) bool {
	return p.allowAll
}

func TestGate_Authorize_NoUser(t *testing.T) {
	g := gate.NewGate[uint]()
	g.Register("test", &mockPolicy{allowAll: true})

	err := g.Authorize(context.Background(), 0, gate.ActionView, "test", nil)
	if err != gate.ErrUnauthorized {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestGate_Authorize_NoPolicy(t *testing.T) {
	g := gate.NewGate[uint]()

	err := g.Authorize(context.Background(), 1, gate.ActionView, "unknown", nil)
	if err != gate.ErrNoPolicyDefined {
		t.Errorf("expected ErrNoPolicyDefined, got %v", err)
	}
}

func TestGate_Authorize(t *testing.T) {
	tests := []struct {
		name    string
		allow   bool
		wantErr error
	}{
		{"allowed", true, nil},
		{"denied", false, gate.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := gate.NewGate[uint]()
			g.Register("order", &mockPolicy{allowAll: tt.allow})
			if err := g.Authorize(context.Background(), 1, gate.ActionApprove, "order", nil); err != tt.wantErr {
				t.Errorf("Authorize() = %v, want %v", err, tt.wantErr)
			}
			if got := g.Can(context.Background(), 1, gate.ActionApprove, "order", nil); got != tt.allow {
				t.Errorf("Can() = %v, want %v", got, tt.allow)
			}
		})
	}
}

func TestGate_PointerSubject(t *testing.T) {
	type subject struct{ staff bool }
	g := gate.NewGate[*subject]()
	g.Register("job", gate.PolicyFunc[*subject](func(_ context.Context, s *subject, _ gate.Action, _ any) bool {
		return s.staff
	}))

	if err := g.Authorize(context.Background(), nil, gate.ActionCreate, "job", nil); err != gate.ErrUnauthorized {
		t.Errorf("nil subject: expected ErrUnauthorized, got %v", err)
	}
	if g.Can(context.Background(), &subject{staff: false}, gate.ActionCreate, "job", nil) {
		t.Error("non-staff subject must be denied")
	}
	if !g.Can(context.Background(), &subject{staff: true}, gate.ActionCreate, "job", nil) {
		t.Error("staff subject must be allowed")
	}
}

func TestGate_RegisterOverwrites(t *testing.T) {
	g := gate.NewGate[uint]()
	g.Register("order", &mockPolicy{allowAll: false})
	g.Register("order", &mockPolicy{allowAll: true})
	if !g.Can(context.Background(), 1, gate.ActionView, "order", nil) {
		t.Error("expected the last registered policy to win")
	}
}
