package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogPlatform/internal/testutil"
)

const testSecret = "test-secret"

func TestParseFromMD_ValidBearer(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, 7, "alice", "user", "user")
	ctx := testutil.CtxWithBearer(context.Background(), tok)
	p, err := ParseFromMD(ctx, testSecret)
	if err != nil {
		t.Fatalf("ParseFromMD: %v", err)
	}
	if p.ID != 7 || p.Name != "alice" || p.Kind != KindUser {
		t.Fatalf("principal mismatch: %+v", p)
	}
	if p.TokenID == "" || p.ExpiresAt.IsZero() {
		t.Fatalf("expected jti and expiry: %+v", p)
	}
}

func TestParseFromMD_MissingHeader(t *testing.T) {
	_, err := ParseFromMD(context.Background(), testSecret)
	if err == nil {
		t.Fatalf("expected error for missing metadata")
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, 1, "bob", "user", "user")
	if _, err := ParseToken(tok, "wrong"); err == nil {
		t.Fatalf("expected error for wrong secret")
	}
}

func TestParseToken_ClaimsValidation(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, 1, "", "", "")
	if _, err := ParseToken(tok, testSecret); err == nil {
		t.Fatalf("expected invalid claims error")
	}
	tok = testutil.GenerateJWTHS256(t, testSecret, 0, "carol", "user", "")
	if _, err := ParseToken(tok, testSecret); err == nil {
		t.Fatalf("expected invalid subject error")
	}
}

func TestIssuer_RoundTrip(t *testing.T) {
	iss := NewIssuer(testSecret, 30*time.Minute)
	tok, exp, err := iss.Issue(Principal{ID: 3, Name: "root", Kind: KindAdmin, Role: "superadmin"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp, 2*time.Second)

	p, err := ParseToken(tok, testSecret)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.ID)
	assert.Equal(t, KindAdmin, p.Kind)
	assert.Equal(t, "superadmin", p.Role)
	assert.NotEmpty(t, p.TokenID)

	tok2, _, err := iss.Issue(Principal{ID: 3, Name: "root", Kind: KindAdmin})
	require.NoError(t, err)
	p2, err := ParseToken(tok2, testSecret)
	require.NoError(t, err)
	assert.NotEqual(t, p.TokenID, p2.TokenID, "every token gets its own jti")
}

func TestIssuer_Expired(t *testing.T) {
	iss := NewIssuer(testSecret, time.Minute)
	iss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, _, err := iss.Issue(Principal{ID: 1, Name: "a", Kind: KindUser})
	require.NoError(t, err)
	_, err = ParseToken(tok, testSecret)
	assert.Error(t, err)
}

func TestIssuer_RejectsIncompletePrincipal(t *testing.T) {
	iss := NewIssuer(testSecret, time.Minute)
	_, _, err := iss.Issue(Principal{Name: "a", Kind: KindUser})
	assert.Error(t, err)
	_, _, err = NewIssuer("", time.Minute).Issue(Principal{ID: 1, Name: "a", Kind: KindUser})
	assert.Error(t, err)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TokenFromRequest(r, "access_token"))

	r.AddCookie(&http.Cookie{Name: "access_token", Value: "from-cookie"})
	assert.Equal(t, "from-cookie", TokenFromRequest(r, "access_token"))

	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", TokenFromRequest(r, "access_token"))

	r.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, TokenFromRequest(r, "access_token"), "a malformed header is not silently replaced by the cookie")
}
