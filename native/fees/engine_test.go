package fees

import (
	"errors"
	"math/big"
	"testing"
)

func unitAmount(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), Unit)
}

func TestQuoteBurnAtTargetPrice(t *testing.T) {
	engine := New(100, 50)
	amount := big.NewInt(1000)
	price := unitAmount(1)

	quote, err := engine.Quote(amount, price, price, big.NewInt(0), unitAmount(1_000_000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := quote.BurnBps.Int64(), int64(100); got != want {
		t.Fatalf("burn bps: got %d want %d", got, want)
	}
	if got, want := quote.BurnAmount.Int64(), int64(10); got != want {
		t.Fatalf("burn amount: got %d want %d", got, want)
	}
	if quote.MintAmount.Sign() != 0 {
		t.Fatalf("expected zero mint at zero volume, got %s", quote.MintAmount)
	}
}

func TestQuoteBurnScalesWithPrice(t *testing.T) {
	engine := New(100, 0)
	target := unitAmount(1)
	price := unitAmount(2)

	quote, err := engine.Quote(big.NewInt(10_000), price, target, big.NewInt(0), unitAmount(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := quote.BurnBps.Int64(), int64(200); got != want {
		t.Fatalf("burn bps: got %d want %d", got, want)
	}
	if got, want := quote.BurnAmount.Int64(), int64(200); got != want {
		t.Fatalf("burn amount: got %d want %d", got, want)
	}
}

func TestQuoteMintTracksActivity(t *testing.T) {
	engine := New(0, 50)
	price := unitAmount(1)
	// volume == effective supply, so activity ratio is exactly 1e18.
	quote, err := engine.Quote(big.NewInt(10_000), price, price, unitAmount(500), unitAmount(500))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := quote.MintBps.Int64(), int64(50); got != want {
		t.Fatalf("mint bps: got %d want %d", got, want)
	}
	if got, want := quote.MintAmount.Int64(), int64(50); got != want {
		t.Fatalf("mint amount: got %d want %d", got, want)
	}
}

func TestQuoteTruncatesTowardZero(t *testing.T) {
	engine := New(100, 0)
	price := unitAmount(1)
	// 999 * 100 / 10000 = 9.99, which must floor to 9.
	quote, err := engine.Quote(big.NewInt(999), price, price, big.NewInt(0), unitAmount(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := quote.BurnAmount.Int64(), int64(9); got != want {
		t.Fatalf("burn amount: got %d want %d", got, want)
	}
}

func TestQuoteRejectsSaturatedBurnRate(t *testing.T) {
	engine := New(100, 0)
	target := unitAmount(1)

	// 100 bps at 100x the target derives exactly 10000 bps.
	_, err := engine.Quote(big.NewInt(1000), unitAmount(100), target, big.NewInt(0), unitAmount(1))
	if !errors.Is(err, ErrBurnRateSaturated) {
		t.Fatalf("expected ErrBurnRateSaturated, got %v", err)
	}

	// One unit below saturation the quote still settles.
	quote, err := engine.Quote(big.NewInt(10_000), unitAmount(99), target, big.NewInt(0), unitAmount(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := quote.BurnBps.Int64(), int64(9900); got != want {
		t.Fatalf("burn bps: got %d want %d", got, want)
	}
}

func TestQuoteZeroEffectiveSupply(t *testing.T) {
	engine := New(100, 50)
	price := unitAmount(1)
	_, err := engine.Quote(big.NewInt(1000), price, price, big.NewInt(0), big.NewInt(0))
	if !errors.Is(err, ErrZeroEffectiveSupply) {
		t.Fatalf("expected ErrZeroEffectiveSupply, got %v", err)
	}
}
