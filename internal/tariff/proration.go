package tariff

import (
	"errors"
	"math"
	"time"
)

var (
	ErrAlreadyAtTier = errors.New("tariff: already at this tier or higher")
	ErrInvalidTier   = errors.New("tariff: unknown tier")
	ErrInvalidPrice  = errors.New("tariff: tier has no positive price")
)

// Holding is the currently active subscription of a user. A nil ExpiresAt
// means the tier never expires.
type Holding struct {
	Tier      Tier
	ExpiresAt *time.Time
}

// Quote is the result of pricing a purchase.
type Quote struct {
	Target        Tier
	Current       Tier // None for a fresh purchase
	BasePrice     int
	Credit        int
	Price         int // always >= 1
	RemainingDays int
}

func (q Quote) IsUpgrade() bool { return q.Current != None }

// QuotePurchase prices target for a user. current is nil when the user holds
// no active tier. Lateral and downward purchases return ErrAlreadyAtTier.
func QuotePurchase(target Tier, current *Holding, prices Prices, now time.Time) (Quote, error) {
	if !target.Valid() {
		return Quote{}, ErrInvalidTier
	}
	targetPrice := prices.Of(target)
	if targetPrice <= 0 {
		return Quote{}, ErrInvalidPrice
	}

	q := Quote{Target: target, BasePrice: targetPrice, Price: targetPrice}
	if current == nil || !current.Tier.Valid() {
		return q, nil
	}
	if current.Tier.Rank() >= target.Rank() {
		return Quote{}, ErrAlreadyAtTier
	}

	q.Current = current.Tier
	if current.ExpiresAt == nil {
		// No expiry means there is no unused period to credit.
		return q, nil
	}

	remaining := current.ExpiresAt.Sub(now)
	fraction := RemainingFraction(remaining)
	q.Credit = int(math.Round(float64(prices.Of(current.Tier)) * fraction))
	q.Price = max(1, targetPrice-q.Credit)
	q.RemainingDays = RemainingDays(remaining)
	return q, nil
}

// RemainingFraction is remaining/Period clamped to [0, 1].
func RemainingFraction(remaining time.Duration) float64 {
	f := remaining.Seconds() / Period.Seconds()
	return math.Min(1, math.Max(0, f))
}

// RemainingDays rounds up to whole days, capped at PeriodDays.
func RemainingDays(remaining time.Duration) int {
	if remaining <= 0 {
		return 0
	}
	days := int(math.Ceil(remaining.Hours() / 24))
	return min(days, PeriodDays)
}

// SubunitAmount converts whole currency units to the provider's minor units.
func SubunitAmount(price int) int {
	return price * 100
}
