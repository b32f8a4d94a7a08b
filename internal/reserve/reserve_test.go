package reserve

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/quorumtrade/poolarb/pkg/types"
)

func testReserve(initial float64) *Reserve {
	return New(Config{
		InitialBalance: initial,
		Logger:         zap.NewNop(),
	})
}

func TestAllocate(t *testing.T) {
	r := testReserve(0)

	if err := r.Allocate(150); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if got := r.Balance(); got != 150 {
		t.Fatalf("balance = %f, want 150", got)
	}

	// Zero is a no-op, negatives are rejected.
	if err := r.Allocate(0); err != nil {
		t.Fatalf("Allocate(0): %v", err)
	}
	if err := r.Allocate(-10); err == nil {
		t.Fatal("negative allocation should fail")
	}
	if got := r.Balance(); got != 150 {
		t.Fatalf("balance after rejected allocations = %f, want 150", got)
	}
}

func TestClaimLifecycle(t *testing.T) {
	r := testReserve(1000)

	claim, err := r.FileClaim("0xalice", 400, "unrecoverable unwind loss")
	if err != nil {
		t.Fatalf("FileClaim: %v", err)
	}
	if claim.Status != ClaimFiled {
		t.Fatalf("status = %s, want FILED", claim.Status)
	}

	paid, err := r.ApproveClaim(claim.ID, 10000)
	if err != nil {
		t.Fatalf("ApproveClaim: %v", err)
	}
	if paid.Status != ClaimPaid {
		t.Fatalf("status = %s, want PAID", paid.Status)
	}
	if got := r.Balance(); got != 600 {
		t.Fatalf("balance = %f, want 600 after full payout", got)
	}

	// A settled claim cannot be decided again.
	if _, err := r.ApproveClaim(claim.ID, 10000); !errors.Is(err, types.ErrNotPending) {
		t.Fatalf("double approve err = %v, want ErrNotPending", err)
	}
}

func TestClaimExceedsReserve(t *testing.T) {
	r := testReserve(600)

	claim, _ := r.FileClaim("0xbob", 700, "loss coverage")

	_, err := r.ApproveClaim(claim.ID, 10000)
	if !errors.Is(err, types.ErrInsufficientReserve) {
		t.Fatalf("err = %v, want ErrInsufficientReserve", err)
	}
	if got := r.Balance(); got != 600 {
		t.Fatalf("balance = %f, want untouched 600", got)
	}

	// The claim stays FILED and becomes payable once funded.
	filed := r.Claims(ClaimFiled)
	if len(filed) != 1 || filed[0].ID != claim.ID {
		t.Fatalf("filed claims = %v, want the blocked claim still FILED", filed)
	}

	_ = r.Allocate(200)
	if _, err := r.ApproveClaim(claim.ID, 10000); err != nil {
		t.Fatalf("approve after funding: %v", err)
	}
	if got := r.Balance(); got != 100 {
		t.Fatalf("balance = %f, want 100", got)
	}
}

type fakeCreditor struct {
	credits map[string]float64
	err     error
}

func (f *fakeCreditor) CreditMember(address string, amount float64) error {
	if f.err != nil {
		return f.err
	}
	if f.credits == nil {
		f.credits = make(map[string]float64)
	}
	f.credits[address] += amount
	return nil
}

func TestApproveClaimCreditsMember(t *testing.T) {
	r := testReserve(1000)
	creditor := &fakeCreditor{}
	r.BindCreditor(creditor)

	claim, err := r.FileClaim("0xalice", 400, "unrecoverable unwind loss")
	if err != nil {
		t.Fatalf("FileClaim: %v", err)
	}

	paid, err := r.ApproveClaim(claim.ID, 10000)
	if err != nil {
		t.Fatalf("ApproveClaim: %v", err)
	}
	if paid.Status != ClaimPaid {
		t.Fatalf("status = %s, want PAID", paid.Status)
	}

	// Reserve down by the claim amount, member up by the same amount.
	if got := r.Balance(); got != 600 {
		t.Errorf("balance = %f, want 600", got)
	}
	if got := creditor.credits["0xalice"]; got != 400 {
		t.Errorf("member credit = %f, want the full claim amount 400", got)
	}
}

func TestCreditFailureLeavesClaimFiled(t *testing.T) {
	r := testReserve(1000)
	r.BindCreditor(&fakeCreditor{err: errors.New("member withdrawn")})

	claim, _ := r.FileClaim("0xbob", 250, "loss coverage")

	if _, err := r.ApproveClaim(claim.ID, 10000); err == nil {
		t.Fatal("approval should fail when the member credit fails")
	}
	if got := r.Balance(); got != 1000 {
		t.Fatalf("balance = %f, want restored 1000", got)
	}

	filed := r.Claims(ClaimFiled)
	if len(filed) != 1 || filed[0].ID != claim.ID {
		t.Fatalf("filed claims = %v, want the claim back to FILED", filed)
	}

	// Payable once the credit path recovers.
	r.BindCreditor(&fakeCreditor{})
	if _, err := r.ApproveClaim(claim.ID, 10000); err != nil {
		t.Fatalf("approve after recovery: %v", err)
	}
	if got := r.Balance(); got != 750 {
		t.Fatalf("balance = %f, want 750", got)
	}
}

func TestDenyClaim(t *testing.T) {
	r := testReserve(1000)
	claim, _ := r.FileClaim("0xcarol", 100, "disputed")

	if err := r.DenyClaim(claim.ID, "loss not covered"); err != nil {
		t.Fatalf("DenyClaim: %v", err)
	}
	if got := r.Balance(); got != 1000 {
		t.Fatalf("balance = %f, want unchanged 1000", got)
	}

	if err := r.DenyClaim(claim.ID, "again"); !errors.Is(err, types.ErrNotPending) {
		t.Fatalf("double deny err = %v, want ErrNotPending", err)
	}
	if err := r.DenyClaim("missing", ""); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("deny missing claim err = %v, want ErrNotFound", err)
	}
}

func TestHealthPolicyBlocksApproval(t *testing.T) {
	r := New(Config{
		InitialBalance: 500,
		MinHealthRatio: 0.04,
		Logger:         zap.NewNop(),
	})

	claim, _ := r.FileClaim("0xdave", 200, "loss coverage")

	// Paying would leave 300 against 10000 pool capital: ratio 0.03 < 0.04.
	_, err := r.ApproveClaim(claim.ID, 10000)
	if !errors.Is(err, types.ErrReserveHealthLow) {
		t.Fatalf("err = %v, want ErrReserveHealthLow", err)
	}

	// A smaller pool keeps the ratio above the floor.
	if _, err := r.ApproveClaim(claim.ID, 5000); err != nil {
		t.Fatalf("approve with healthy ratio: %v", err)
	}
}

func TestInvalidClaims(t *testing.T) {
	r := testReserve(100)

	if _, err := r.FileClaim("0xa", 0, ""); err == nil {
		t.Fatal("zero-amount claim should fail")
	}
	if _, err := r.FileClaim("0xa", -5, ""); err == nil {
		t.Fatal("negative claim should fail")
	}
	if _, err := r.ApproveClaim("missing", 1000); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("approve missing claim err = %v, want ErrNotFound", err)
	}
}

func TestHealthReport(t *testing.T) {
	r := testReserve(500)
	_, _ = r.FileClaim("0xa", 100, "first")
	_, _ = r.FileClaim("0xb", 150, "second")

	report := r.Health(10000)
	if report.PendingClaims != 2 || report.PendingAmount != 250 {
		t.Fatalf("pending = %d/%f, want 2/250", report.PendingClaims, report.PendingAmount)
	}
	if report.HealthRatio != 0.05 {
		t.Fatalf("health ratio = %f, want 0.05", report.HealthRatio)
	}
	if report.CoverageRatio != 2 {
		t.Fatalf("coverage ratio = %f, want 2", report.CoverageRatio)
	}

	// No pending claims: coverage reports 0.
	empty := testReserve(100)
	if got := empty.Health(1000).CoverageRatio; got != 0 {
		t.Fatalf("coverage with no claims = %f, want 0", got)
	}
}
