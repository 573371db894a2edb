package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"relaychat/internal/app/channel"
	"relaychat/internal/app/chat"
	"relaychat/internal/app/store/memory"
	"relaychat/internal/configs"
	"relaychat/internal/handler"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/pow"
	"relaychat/internal/pkg/resp"
)

// newTestDeps assembles the handler dependencies over the in-memory gateway.
// PoW difficulty zero means any counter solves a challenge, which keeps the
// register flow testable.
func newTestDeps() *handler.AppDeps {
	hub := chat.NewHub()
	st := memory.New()
	return &handler.AppDeps{
		Hub:      hub,
		Registry: channel.NewRegistry(st, hub),
		Store:    st,
		Config: &configs.AppConfig{
			Environment:   "development",
			Port:          8080,
			PowDifficulty: 0,
			JWTSecret:     "test-secret",
		},
		Pow: pow.NewPoWManager(0),
	}
}

func postJSON(t *testing.T, h http.HandlerFunc, target string, body any, headers map[string]string) (*httptest.ResponseRecorder, resp.JSONResponse) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		r.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	h(w, r)

	var decoded resp.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	return w, decoded
}

// proofToken walks the challenge flow and returns a spendable token.
func proofToken(t *testing.T, deps *handler.AppDeps) string {
	t.Helper()

	nonce := deps.Pow.GenerateNonce()
	token, err := deps.Pow.ValidateProof(nonce, "0")
	require.NoError(t, err)
	return token
}

func TestRegisterRequiresProofToken(t *testing.T) {
	deps := newTestDeps()

	_, decoded := postJSON(t, handler.HandleRegister(deps), "/api/auth/register", handler.RegisterInput{
		Username: "alice",
		Password: "secret123",
	}, nil)

	require.Equal(t, errs.ErrPowChallengeRequired, decoded.Code)
}

func TestRegisterAndLoginRoundTrip(t *testing.T) {
	deps := newTestDeps()

	_, decoded := postJSON(t, handler.HandleRegister(deps), "/api/auth/register", handler.RegisterInput{
		Username: "alice_01",
		Password: "secret123",
	}, map[string]string{pow.TokenHeaderKey: proofToken(t, deps)})

	require.Equal(t, 0, decoded.Code)
	data, ok := decoded.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "alice_01", data["username"])
	require.NotEmpty(t, data["token"])

	_, decoded = postJSON(t, handler.HandleLogin(deps), "/api/auth/login", handler.LoginInput{
		Username: "alice_01",
		Password: "secret123",
	}, nil)

	require.Equal(t, 0, decoded.Code)
	data, ok = decoded.Data.(map[string]any)
	require.True(t, ok)
	require.NotEmpty(t, data["token"])
}

func TestRegisterProofTokenIsSingleUse(t *testing.T) {
	deps := newTestDeps()
	token := proofToken(t, deps)

	_, decoded := postJSON(t, handler.HandleRegister(deps), "/api/auth/register", handler.RegisterInput{
		Username: "alice",
		Password: "secret123",
	}, map[string]string{pow.TokenHeaderKey: token})
	require.Equal(t, 0, decoded.Code)

	_, decoded = postJSON(t, handler.HandleRegister(deps), "/api/auth/register", handler.RegisterInput{
		Username: "bob",
		Password: "secret123",
	}, map[string]string{pow.TokenHeaderKey: token})
	require.Equal(t, errs.ErrPowChallengeRequired, decoded.Code)
}

func TestRegisterValidation(t *testing.T) {
	deps := newTestDeps()

	cases := []struct {
		name     string
		username string
		password string
		want     int
	}{
		{"username too short", "ab", "secret123", errs.ErrInvalidUsername},
		{"username uppercase", "Alice", "secret123", errs.ErrInvalidUsername},
		{"password too short", "alice", "12345", errs.ErrInvalidPassword},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, decoded := postJSON(t, handler.HandleRegister(deps), "/api/auth/register", handler.RegisterInput{
				Username: tc.username,
				Password: tc.password,
			}, map[string]string{pow.TokenHeaderKey: proofToken(t, deps)})
			require.Equal(t, tc.want, decoded.Code)
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	deps := newTestDeps()

	_, decoded := postJSON(t, handler.HandleRegister(deps), "/api/auth/register", handler.RegisterInput{
		Username: "alice",
		Password: "secret123",
	}, map[string]string{pow.TokenHeaderKey: proofToken(t, deps)})
	require.Equal(t, 0, decoded.Code)

	_, decoded = postJSON(t, handler.HandleRegister(deps), "/api/auth/register", handler.RegisterInput{
		Username: "alice",
		Password: "different1",
	}, map[string]string{pow.TokenHeaderKey: proofToken(t, deps)})
	require.Equal(t, errs.ErrUserAlreadyExists, decoded.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	deps := newTestDeps()

	_, decoded := postJSON(t, handler.HandleRegister(deps), "/api/auth/register", handler.RegisterInput{
		Username: "alice",
		Password: "secret123",
	}, map[string]string{pow.TokenHeaderKey: proofToken(t, deps)})
	require.Equal(t, 0, decoded.Code)

	_, decoded = postJSON(t, handler.HandleLogin(deps), "/api/auth/login", handler.LoginInput{
		Username: "alice",
		Password: "wrong-password",
	}, nil)
	require.Equal(t, errs.ErrInvalidCredentials, decoded.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	deps := newTestDeps()

	_, decoded := postJSON(t, handler.HandleLogin(deps), "/api/auth/login", handler.LoginInput{
		Username: "ghost",
		Password: "whatever1",
	}, nil)
	require.Equal(t, errs.ErrInvalidCredentials, decoded.Code)
}
