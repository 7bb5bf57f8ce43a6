package credential

import (
	"context"

	"github.com/ProveniaLabs/lib-admission/admission/ratelimit"
)

// PolicySource adapts the credential repository into a policy source for the
// limiter. Identities outside the token namespace, unknown tokens and
// revoked credentials all resolve to ErrPolicyNotFound so the limiter falls
// back to its default policy.
type PolicySource struct {
	repository CredentialRepository
}

// NewPolicySource creates a policy source over the credential repository.
func NewPolicySource(repository CredentialRepository) *PolicySource {
	return &PolicySource{repository: repository}
}

// PolicyFor implements ratelimit.Source.
func (s *PolicySource) PolicyFor(ctx context.Context, identity ratelimit.Identity) (*ratelimit.Policy, error) {
	if identity.Namespace != ratelimit.NamespaceToken {
		return nil, ratelimit.ErrPolicyNotFound
	}

	credential, err := s.repository.FindCredential(ctx, identity.ID)
	if err != nil {
		return nil, err
	}

	if credential == nil || !credential.Active {
		return nil, ratelimit.ErrPolicyNotFound
	}

	return credential.Policy()
}
