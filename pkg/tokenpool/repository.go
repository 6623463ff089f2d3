package tokenpool

import "context"

// Repository is the opaque persistence-layer interface named in spec.md
// §6.3. The core only ever calls through this interface; a SQL-backed
// implementation is out of scope.
type Repository interface {
	VerifyUserAPIKey(ctx context.Context, key string) (userID string, ok bool, err error)
	GetUser(ctx context.Context, userID string) (User, bool, error)
	GetUserActiveDonatedTokens(ctx context.Context, userID string) ([]DonatedToken, error)
	GetPublicActiveDonatedTokens(ctx context.Context) ([]DonatedToken, error)
	GetTokenCredentials(ctx context.Context, tokenID string) (TokenCredentials, error)
	RecordTokenUsage(ctx context.Context, tokenID string, success bool) error
	SetTokenStatus(ctx context.Context, tokenID string, status Status) error
}
