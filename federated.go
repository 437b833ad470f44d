package whisperwall

import "context"

// Evidence is the input to an AuthStrategy. The local strategy reads
// Username and Password; federated resolvers read SubjectID, which the
// provider exchange has already validated.
type Evidence struct {
	Username  string
	Password  string
	SubjectID string
}

// AuthStrategy is a single credential source. Every strategy terminates in
// the same place: a stored user record. Strategies are composed explicitly
// by the HTTP layer; there is no global registry.
type AuthStrategy interface {
	// Provider names the credential source ("local", "google", ...).
	Provider() string

	// Authenticate turns evidence into the matching user record.
	Authenticate(ctx context.Context, ev Evidence) (*User, error)
}

// FederatedResolver maps a provider-issued subject identifier to a user
// record with find-or-create semantics. One resolver is constructed per
// provider.
type FederatedResolver struct {
	provider string
	users    UserStore
}

// NewFederatedResolver creates a resolver for the named provider.
func NewFederatedResolver(provider string, users UserStore) *FederatedResolver {
	return &FederatedResolver{provider: provider, users: users}
}

// Provider implements AuthStrategy.
func (r *FederatedResolver) Provider() string { return r.provider }

// FindOrCreate returns the record linked to subjectID, creating one on first
// login. Repeat logins return the same record unchanged. The race between
// two concurrent first logins is closed by the store's uniqueness constraint
// on the (provider, subject) pair - the losing call returns the winner's
// record. Password fields are never touched here.
func (r *FederatedResolver) FindOrCreate(ctx context.Context, subjectID string) (*User, error) {
	if subjectID == "" {
		return nil, ErrProviderAuthFailed
	}
	user, _, err := r.users.FindOrCreateByProvider(ctx, r.provider, subjectID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate implements AuthStrategy.
func (r *FederatedResolver) Authenticate(ctx context.Context, ev Evidence) (*User, error) {
	return r.FindOrCreate(ctx, ev.SubjectID)
}
