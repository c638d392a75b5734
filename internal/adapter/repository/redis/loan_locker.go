package redis

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/iho/khata/internal/domain"
)

// releaseScript deletes the lock only when it still holds the caller's token,
// so an expired holder cannot release a lock taken over by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LoanLocker implements usecase.LoanLocker with a SETNX lease per loan.
type LoanLocker struct {
	client redis.Cmdable
	prefix string
}

// NewLoanLocker creates a new LoanLocker.
func NewLoanLocker(client redis.Cmdable) *LoanLocker {
	return &LoanLocker{
		client: client,
		prefix: "khata:lock:loan:",
	}
}

// Acquire takes the lease for loanID, failing with domain.ErrLoanLocked when
// another holder owns it.
func (l *LoanLocker) Acquire(ctx context.Context, loanID string, ttl time.Duration) (string, error) {
	token := ulid.Make().String()

	ok, err := l.client.SetNX(ctx, l.prefix+loanID, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrLoanLocked
	}
	return token, nil
}

// Release gives the lease back. Releasing an expired or foreign lease is a
// no-op.
func (l *LoanLocker) Release(ctx context.Context, loanID, token string) error {
	return releaseScript.Run(ctx, l.client, []string{l.prefix + loanID}, token).Err()
}
