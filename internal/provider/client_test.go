package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/smsline/smsline/internal/pkg/errors"
	"github.com/smsline/smsline/internal/ratelimit"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(Config{
		APIKey:      "test-key",
		BaseURL:     srv.URL,
		HTTPTimeout: 5 * time.Second,
	}, ratelimit.NewGate(0))
	require.NoError(t, err)
	return client
}

func TestCheckBalance(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		require.Equal(t, "getBalance", r.URL.Query().Get("action"))
		_, _ = w.Write([]byte("ACCESS_BALANCE:12.34"))
	})
	amount, err := client.CheckBalance(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 12.34, amount, 1e-9)
}

func TestCheckBalanceBadKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("BAD_KEY"))
	})
	_, err := client.CheckBalance(context.Background())
	require.ErrorIs(t, err, appErr.ErrBadKey)
}

func TestRentParsesIDAndNumber(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "getNumber", q.Get("action"))
		require.Equal(t, "ds", q.Get("service"))
		require.Equal(t, "0.50", q.Get("max_price"))
		_, _ = w.Write([]byte("ACCESS_NUMBER:999999:14066097428"))
	})
	rental, err := client.Rent(context.Background(), RentRequest{ServiceCode: "ds", MaxPrice: 0.50})
	require.NoError(t, err)
	require.Equal(t, "999999", rental.ID)
	require.Equal(t, "14066097428", rental.PhoneNumber)
}

func TestRentRejections(t *testing.T) {
	cases := []struct {
		body string
		want error
	}{
		{"NO_NUMBERS", appErr.ErrNoNumbers},
		{"MAX_PRICE_EXCEEDED", appErr.ErrPriceExceeded},
		{"NO_MONEY", appErr.ErrInsufficientBalance},
		{"TOO_MANY_ACTIVE_RENTALS", appErr.ErrTooManyRentals},
		{"BAD_KEY", appErr.ErrBadKey},
	}
	for _, tc := range cases {
		t.Run(tc.body, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := client.Rent(context.Background(), RentRequest{ServiceCode: "ds", MaxPrice: 0.50})
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPollOutcomes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want Outcome
	}{
		{"waiting", "STATUS_WAIT_CODE", Outcome{Kind: OutcomeWaiting}},
		{"code", "STATUS_OK:482911", Outcome{Kind: OutcomeCode, Code: "482911"}},
		{"cancelled", "STATUS_CANCEL", Outcome{Kind: OutcomeCancelled}},
		{"gone", "NO_ACTIVATION", Outcome{Kind: OutcomeExpired}},
		{"bare numeric token", "482911", Outcome{Kind: OutcomeCode, Code: "482911"}},
		{"numeric with trailer", "STATUS_OK:482911:extra", Outcome{Kind: OutcomeCode, Code: "482911"}},
		{"unknown token", "SOMETHING_NEW", Outcome{Kind: OutcomeWaiting}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				require.Equal(t, "getStatus", q.Get("action"))
				require.Equal(t, "V1", q.Get("id"))
				require.Equal(t, "1", q.Get("text"))
				_, _ = w.Write([]byte(tc.body))
			})
			outcome, err := client.Poll(context.Background(), "V1")
			require.NoError(t, err)
			require.Equal(t, tc.want.Kind, outcome.Kind)
			require.Equal(t, tc.want.Code, outcome.Code)
		})
	}
}

func TestPollExtractsCodeFromFullText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Text", "Your Discord code is 773300, do not share it")
		_, _ = w.Write([]byte("WEIRD_TOKEN:abc"))
	})
	outcome, err := client.Poll(context.Background(), "V1")
	require.NoError(t, err)
	require.Equal(t, OutcomeCode, outcome.Kind)
	require.Equal(t, "773300", outcome.Code)
}

func TestCancelMapping(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "setStatus", q.Get("action"))
		require.Equal(t, "8", q.Get("status"))
		_, _ = w.Write([]byte("ACCESS_CANCEL"))
	})
	require.NoError(t, client.Cancel(context.Background(), "V1"))

	already := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ACCESS_READY"))
	})
	require.ErrorIs(t, already.Cancel(context.Background(), "V1"), appErr.ErrConflict)
}

func TestMarkDoneAndKeep(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "setStatus":
			require.Equal(t, "6", r.URL.Query().Get("status"))
			_, _ = w.Write([]byte("ACCESS_ACTIVATION"))
		case "keep":
			_, _ = w.Write([]byte("OK"))
		default:
			t.Fatalf("unexpected action %s", r.URL.Query().Get("action"))
		}
	})
	require.NoError(t, client.MarkDone(context.Background(), "V1"))
	require.NoError(t, client.Keep(context.Background(), "V1"))
}

func TestTransientRetriesThenSurfaces(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("STATUS_WAIT_CODE"))
	})
	outcome, err := client.Poll(context.Background(), "V1")
	require.NoError(t, err)
	require.Equal(t, OutcomeWaiting, outcome.Kind)
	require.Equal(t, 3, calls)
}

func TestTransientExhaustedReturnsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := client.Poll(context.Background(), "V1")
	require.Error(t, err)
}

func TestBalanceCache(t *testing.T) {
	var calls int
	inner := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte("ACCESS_BALANCE:5.00"))
	})
	cached := WrapBalanceCache(inner, time.Minute)

	for i := 0; i < 3; i++ {
		amount, err := cached.CheckBalance(context.Background())
		require.NoError(t, err)
		require.InDelta(t, 5.0, amount, 1e-9)
	}
	require.Equal(t, 1, calls)

	cached.Invalidate()
	_, err := cached.CheckBalance(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}
