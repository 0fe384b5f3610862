package usecase_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/bomdev/auth-service/internal/metrics"
	"github.com/bomdev/auth-service/internal/usecase"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func mintRefresh(t *testing.T, svc *usecase.TokenService, userID int64, ttl time.Duration, ip string, bind bool) string {
	t.Helper()
	raw, err := svc.Create(context.Background(), usecase.CreateTokenInput{
		UserID:    &userID,
		Purpose:   domain.PurposeRefresh,
		ExpiresAt: time.Now().Add(ttl),
		OriginIP:  ip,
		BindIP:    bind,
	})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	return raw
}

func TestCreate_StoresOnlyHash(t *testing.T) {
	store := newMemTokenStore()
	svc := usecase.NewTokenService(store)

	raw := mintRefresh(t, svc, 7, time.Hour, "10.0.0.1", false)
	if len(raw) != 64 {
		t.Fatalf("want 64 hex chars, got %d", len(raw))
	}

	row := store.byHash(usecase.HashToken(raw))
	if row == nil {
		t.Fatal("token row not stored under its hash")
	}
	if row.TokenHash == raw {
		t.Error("raw token stored verbatim")
	}
	if row.IssuingIP == nil || *row.IssuingIP != "10.0.0.1" {
		t.Errorf("issuing ip = %v", row.IssuingIP)
	}
}

func TestCreate_ValuesAreUnique(t *testing.T) {
	svc := usecase.NewTokenService(newMemTokenStore())

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		raw := mintRefresh(t, svc, int64(i%3), time.Hour, "", false)
		if seen[raw] {
			t.Fatalf("duplicate token value %q", raw)
		}
		seen[raw] = true
	}
}

func TestCreate_RejectsPastExpiryAndUnknownPurpose(t *testing.T) {
	svc := usecase.NewTokenService(newMemTokenStore())
	uid := int64(1)

	_, err := svc.Create(context.Background(), usecase.CreateTokenInput{
		UserID: &uid, Purpose: domain.PurposeRefresh, ExpiresAt: time.Now().Add(-time.Second),
	})
	if err == nil {
		t.Error("expected error for expiry in the past")
	}

	_, err = svc.Create(context.Background(), usecase.CreateTokenInput{
		UserID: &uid, Purpose: domain.Purpose("BOGUS"), ExpiresAt: time.Now().Add(time.Hour),
	})
	if err == nil {
		t.Error("expected error for unknown purpose")
	}
}

func TestVerify_SingleUse(t *testing.T) {
	svc := usecase.NewTokenService(newMemTokenStore())
	raw := mintRefresh(t, svc, 42, time.Hour, "", false)

	userID, err := svc.Verify(context.Background(), domain.PurposeRefresh, raw, "1.1.1.1")
	if err != nil {
		t.Fatalf("first verify: %v", err)
	}
	if userID != 42 {
		t.Errorf("user id = %d, want 42", userID)
	}

	if _, err := svc.Verify(context.Background(), domain.PurposeRefresh, raw, "1.1.1.1"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("second verify: want ErrTokenInvalid, got %v", err)
	}
}

func TestVerify_Expired_Invalid(t *testing.T) {
	store := newMemTokenStore()
	svc := usecase.NewTokenService(store)
	raw := mintRefresh(t, svc, 1, time.Minute, "", false)

	store.advance(2 * time.Minute)

	if _, err := svc.Verify(context.Background(), domain.PurposeRefresh, raw, ""); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("want ErrTokenInvalid, got %v", err)
	}
}

func TestVerify_WrongPurpose_DoesNotConsume(t *testing.T) {
	svc := usecase.NewTokenService(newMemTokenStore())
	raw := mintRefresh(t, svc, 1, time.Hour, "", false)

	if _, err := svc.Verify(context.Background(), domain.PurposeForgetPassword, raw, ""); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("want ErrTokenInvalid for foreign purpose, got %v", err)
	}
	if _, err := svc.Verify(context.Background(), domain.PurposeRefresh, raw, ""); err != nil {
		t.Errorf("token should still be usable for its own purpose: %v", err)
	}
}

func TestVerify_UnknownOrEmpty_Invalid(t *testing.T) {
	svc := usecase.NewTokenService(newMemTokenStore())

	for _, raw := range []string{"", "deadbeef"} {
		if _, err := svc.Verify(context.Background(), domain.PurposeRefresh, raw, ""); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Errorf("raw %q: want ErrTokenInvalid, got %v", raw, err)
		}
	}
}

func TestVerify_IPBound_RequiresOrigin(t *testing.T) {
	svc := usecase.NewTokenService(newMemTokenStore())
	raw := mintRefresh(t, svc, 1, time.Hour, "10.0.0.1", true)

	if _, err := svc.Verify(context.Background(), domain.PurposeRefresh, raw, "10.9.9.9"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("foreign ip: want ErrTokenInvalid, got %v", err)
	}
	if _, err := svc.Verify(context.Background(), domain.PurposeRefresh, raw, "10.0.0.1"); err != nil {
		t.Errorf("origin ip should verify: %v", err)
	}
}

func TestVerify_UnboundIP_Mismatch_Allowed(t *testing.T) {
	svc := usecase.NewTokenService(newMemTokenStore())
	raw := mintRefresh(t, svc, 1, time.Hour, "10.0.0.1", false)

	if _, err := svc.Verify(context.Background(), domain.PurposeRefresh, raw, "10.9.9.9"); err != nil {
		t.Errorf("unbound token should ignore ip: %v", err)
	}
}

func TestVerify_Concurrent_ExactlyOneWins(t *testing.T) {
	svc := usecase.NewTokenService(newMemTokenStore())
	raw := mintRefresh(t, svc, 9, time.Hour, "", false)

	const workers = 32
	var (
		wg       sync.WaitGroup
		start    = make(chan struct{})
		winners  atomic.Int32
		rejected atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Verify(context.Background(), domain.PurposeRefresh, raw, "")
			switch {
			case err == nil:
				winners.Add(1)
			case errors.Is(err, domain.ErrTokenInvalid):
				rejected.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if winners.Load() != 1 {
		t.Errorf("winners = %d, want exactly 1", winners.Load())
	}
	if rejected.Load() != workers-1 {
		t.Errorf("rejected = %d, want %d", rejected.Load(), workers-1)
	}
}

func TestVerify_UserlessToken_Invalid(t *testing.T) {
	svc := usecase.NewTokenService(newMemTokenStore())
	raw, err := svc.Park(context.Background(), domain.PurposeExternalOAuthData, "x", time.Minute, "")
	if err != nil {
		t.Fatalf("park: %v", err)
	}

	if _, err := svc.Verify(context.Background(), domain.PurposeExternalOAuthData, raw, ""); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("want ErrTokenInvalid for userless token, got %v", err)
	}
}

func TestParkRedeem_RoundTripsStruct(t *testing.T) {
	svc := usecase.NewTokenService(newMemTokenStore())
	in := domain.OAuthData{ProjectID: 3, RedirectURI: "https://app.test/cb", OriginRequestIP: "1.2.3.4", Provider: "Google"}

	raw, err := svc.Park(context.Background(), domain.PurposeExternalOAuthData, in, time.Minute, "1.2.3.4")
	if err != nil {
		t.Fatalf("park: %v", err)
	}

	var out domain.OAuthData
	if err := svc.Redeem(context.Background(), domain.PurposeExternalOAuthData, raw, "", &out); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}

	if err := svc.Redeem(context.Background(), domain.PurposeExternalOAuthData, raw, "", &out); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("second redeem: want ErrTokenInvalid, got %v", err)
	}
}

func TestRedeem_StringPayloadVerbatim(t *testing.T) {
	svc := usecase.NewTokenService(newMemTokenStore())
	const target = "https://accounts.example.com/auth?state=abc"

	raw, err := svc.Park(context.Background(), domain.PurposeExternalOAuthRedirect, target, time.Minute, "")
	if err != nil {
		t.Fatalf("park: %v", err)
	}

	var got string
	if err := svc.Redeem(context.Background(), domain.PurposeExternalOAuthRedirect, raw, "", &got); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if got != target {
		t.Errorf("got %q", got)
	}
}

func TestVerify_RecordsConsumptionMetrics(t *testing.T) {
	svc := usecase.NewTokenService(newMemTokenStore())
	consumed := metrics.TokensConsumedTotal.WithLabelValues(string(domain.PurposeOTP), "consumed")
	rejected := metrics.TokensConsumedTotal.WithLabelValues(string(domain.PurposeOTP), "rejected")
	beforeOK, beforeBad := testutil.ToFloat64(consumed), testutil.ToFloat64(rejected)

	uid := int64(5)
	raw, err := svc.Create(context.Background(), usecase.CreateTokenInput{
		UserID: &uid, Purpose: domain.PurposeOTP, ExpiresAt: time.Now().Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, _ = svc.Verify(context.Background(), domain.PurposeOTP, raw, "")
	_, _ = svc.Verify(context.Background(), domain.PurposeOTP, raw, "")

	if got := testutil.ToFloat64(consumed) - beforeOK; got != 1 {
		t.Errorf("consumed delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rejected) - beforeBad; got != 1 {
		t.Errorf("rejected delta = %v, want 1", got)
	}
}
