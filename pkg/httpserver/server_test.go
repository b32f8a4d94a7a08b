package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/quorumtrade/poolarb/internal/pool"
	"github.com/quorumtrade/poolarb/internal/reserve"
	"github.com/quorumtrade/poolarb/internal/storage"
	"github.com/quorumtrade/poolarb/pkg/healthprobe"
)

func newClaimServer(t *testing.T) (http.Handler, *pool.Ledger) {
	t.Helper()
	logger := zap.NewNop()

	rsv := reserve.New(reserve.Config{
		InitialBalance: 500,
		Logger:         logger,
	})
	ledger := pool.NewLedger(pool.Config{
		Name:              "test-pool",
		MinContribution:   100,
		MaxMembers:        10,
		ReservePercentage: 0.05,
		Reserve:           rsv,
		Logger:            logger,
	})
	rsv.BindCreditor(ledger)

	if _, err := ledger.AddMember("0xalice", 1000); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	s := New(&Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthprobe.New(),
		Ledger:        ledger,
		Reserve:       rsv,
		Store:         storage.NewConsoleStore(logger),
	})
	return s.server.Handler, ledger
}

func TestClaimLifecycleOverHTTP(t *testing.T) {
	handler, ledger := newClaimServer(t)

	// File a claim.
	body := `{"member":"0xalice","amount":200,"reason":"covered loss"}`
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/claims", strings.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("file claim status = %d, body %s", w.Code, w.Body.String())
	}

	var claim reserve.Claim
	if err := json.NewDecoder(w.Body).Decode(&claim); err != nil {
		t.Fatalf("decode claim: %v", err)
	}
	if claim.Status != reserve.ClaimFiled {
		t.Fatalf("status = %s, want FILED", claim.Status)
	}

	// Approving pays the member in full.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/claims/"+claim.ID+"/approve", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("approve status = %d, body %s", w.Code, w.Body.String())
	}

	balance, err := ledger.MemberBalance("0xalice")
	if err != nil {
		t.Fatalf("MemberBalance: %v", err)
	}
	if balance != 1200 {
		t.Errorf("member balance = %f, want 1200 after the payout", balance)
	}

	// A settled claim cannot be approved again.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/claims/"+claim.ID+"/approve", nil))
	if w.Code != http.StatusConflict {
		t.Errorf("double approve status = %d, want %d", w.Code, http.StatusConflict)
	}

	// The paid claim shows up in the filtered listing.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/claims?status=PAID", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var listing map[string][]reserve.Claim
	if err := json.NewDecoder(w.Body).Decode(&listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing["claims"]) != 1 || listing["claims"][0].ID != claim.ID {
		t.Errorf("paid claims = %+v, want the approved claim", listing["claims"])
	}
}

func TestClaimEndpointErrors(t *testing.T) {
	handler, _ := newClaimServer(t)

	// Unknown claim.
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/claims/missing/deny", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("deny missing claim status = %d, want %d", w.Code, http.StatusNotFound)
	}

	// Invalid claim body.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/claims", strings.NewReader(`{"member":"0xalice","amount":-5}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative claim status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	// Claim beyond the reserve balance stays FILED and reports a conflict.
	body := `{"member":"0xalice","amount":700,"reason":"too big"}`
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/claims", strings.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("file claim status = %d", w.Code)
	}
	var claim reserve.Claim
	if err := json.NewDecoder(w.Body).Decode(&claim); err != nil {
		t.Fatalf("decode claim: %v", err)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/claims/"+claim.ID+"/approve", nil))
	if w.Code != http.StatusConflict {
		t.Errorf("oversized approve status = %d, want %d", w.Code, http.StatusConflict)
	}
}
