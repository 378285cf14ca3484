package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestSessionRoundTrip(t *testing.T) {
	w := httptest.NewRecorder()
	CreateSession(w, 42)
	res := w.Result()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range res.Cookies() {
		req.AddCookie(c)
	}
	uid, ok := ParseSession(req)
	if !ok || uid != 42 {
		t.Fatalf("expected uid 42, got %d (ok=%v)", uid, ok)
	}
}

func TestParseSession_TamperedSignature(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "42.bogus"})
	if _, ok := ParseSession(req); ok {
		t.Fatal("expected tampered cookie to be rejected")
	}
}

func signToken(t *testing.T, secret string, uid uint, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           uid,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestParseBearer(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	tests := []struct {
		name    string
		token   string
		wantUID uint
		wantErr bool
	}{
		{"valid", signToken(t, "s3cret", 7, time.Now().Add(time.Hour)), 7, false},
		{"expired", signToken(t, "s3cret", 7, time.Now().Add(-time.Hour)), 0, true},
		{"wrong secret", signToken(t, "other", 7, time.Now().Add(time.Hour)), 0, true},
		{"garbage", "not-a-token", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uid, err := ParseBearer(tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBearer() err = %v, wantErr %v", err, tt.wantErr)
			}
			if uid != tt.wantUID {
				t.Errorf("ParseBearer() = %d, want %d", uid, tt.wantUID)
			}
		})
	}
}

func TestParseBearer_Disabled(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := ParseBearer("anything"); err != ErrNoTokenSecret {
		t.Fatalf("expected ErrNoTokenSecret, got %v", err)
	}
}

func TestMiddleware_Bearer(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	var got uint
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "s3cret", 9, time.Now().Add(time.Hour)))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != 9 {
		t.Fatalf("expected uid 9 from bearer, got %d", got)
	}
}

func TestRequireAuth(t *testing.T) {
	defer SetUserVerifier(nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	w := httptest.NewRecorder()
	RequireAuth(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401 got %d", w.Code)
	}

	SetUserVerifier(func(_ context.Context, uid uint) bool { return uid == 1 })
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w = httptest.NewRecorder()
	RequireAuth(next).ServeHTTP(w, req.WithContext(WithUserID(req.Context(), 2)))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user: expected 401 got %d", w.Code)
	}

	w = httptest.NewRecorder()
	RequireAuth(next).ServeHTTP(w, req.WithContext(WithUserID(req.Context(), 1)))
	if w.Code != http.StatusNoContent {
		t.Fatalf("known user: expected 204 got %d", w.Code)
	}
}

func TestCallerContext(t *testing.T) {
	rep := uint(3)
	ctx := WithCaller(context.Background(), &Caller{UserID: 5, RepresentativeID: &rep})
	c, ok := CallerFromContext(ctx)
	if !ok || !c.IsRepresentative() || *c.RepresentativeID != 3 {
		t.Fatalf("unexpected caller %+v", c)
	}
	if uid, _ := UserIDFromContext(ctx); uid != 5 {
		t.Fatalf("expected user id 5, got %d", uid)
	}
}
