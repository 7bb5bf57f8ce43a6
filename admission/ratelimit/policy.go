package ratelimit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	constant "github.com/ProveniaLabs/lib-admission/admission/constants"
)

// ErrPolicyNotFound signals that no policy exists for an identity. Callers
// fall back to the default policy, never to unlimited admission.
var ErrPolicyNotFound = constant.ErrPolicyNotFound

// Policy is an ordered set of fixed windows that all must admit a request.
type Policy struct {
	// Name identifies the policy in logs and metrics
	Name string

	// Windows holds the constraints sorted by ascending duration
	Windows []Window
}

// NewPolicy validates and normalizes a policy. Windows are sorted by
// ascending duration. When the policy carries more than one window, empty
// labels are replaced with canonical ones so each window gets its own
// counter key; a single-window policy keeps its empty label and shares the
// bare identity key.
func NewPolicy(name string, windows ...Window) (*Policy, error) {
	if name == "" {
		return nil, fmt.Errorf("policy name is required")
	}

	if len(windows) == 0 {
		return nil, fmt.Errorf("policy %q requires at least one window", name)
	}

	normalized := make([]Window, len(windows))
	copy(normalized, windows)

	for i, w := range normalized {
		if w.Duration <= 0 {
			return nil, fmt.Errorf("policy %q window %d: duration must be positive", name, i)
		}

		if w.MaxRequests <= 0 {
			return nil, fmt.Errorf("policy %q window %d: max requests must be positive", name, i)
		}
	}

	sort.SliceStable(normalized, func(i, j int) bool {
		return normalized[i].Duration < normalized[j].Duration
	})

	if len(normalized) > 1 {
		for i, w := range normalized {
			if w.Label == "" {
				normalized[i].Label = CanonicalLabel(w.Duration)
			}
		}
	}

	seen := make(map[string]struct{}, len(normalized))

	for _, w := range normalized {
		if _, dup := seen[w.Label]; dup {
			return nil, fmt.Errorf("policy %q: duplicate window label %q", name, w.Label)
		}

		seen[w.Label] = struct{}{}
	}

	return &Policy{Name: name, Windows: normalized}, nil
}

// MustNewPolicy is like NewPolicy but panics on invalid input. Intended for
// static policy tables built at startup.
func MustNewPolicy(name string, windows ...Window) *Policy {
	policy, err := NewPolicy(name, windows...)
	if err != nil {
		panic(err)
	}

	return policy
}

// PerMinute builds a one-minute window admitting max requests.
func PerMinute(max int) Window {
	return Window{Duration: time.Minute, MaxRequests: max}
}

// PerHour builds a one-hour window admitting max requests.
func PerHour(max int) Window {
	return Window{Duration: time.Hour, MaxRequests: max}
}

// PerDay builds a 24-hour window admitting max requests.
func PerDay(max int) Window {
	return Window{Duration: 24 * time.Hour, MaxRequests: max}
}

// DefaultPolicy returns the conservative policy applied when no source knows
// the identity: 60 requests per minute.
func DefaultPolicy() *Policy {
	return MustNewPolicy("default", Window{Duration: 60 * time.Second, MaxRequests: 60})
}

// Source resolves the policy governing an identity.
type Source interface {
	// PolicyFor returns the policy for the identity, or ErrPolicyNotFound
	// when the source has no entry for it.
	PolicyFor(ctx context.Context, identity Identity) (*Policy, error)
}

// StaticSource serves policies from in-memory tables, resolving exact
// identities before namespace-wide defaults.
type StaticSource struct {
	mu          sync.RWMutex
	byIdentity  map[string]*Policy
	byNamespace map[string]*Policy
}

// NewStaticSource creates an empty static policy source.
func NewStaticSource() *StaticSource {
	return &StaticSource{
		byIdentity:  make(map[string]*Policy),
		byNamespace: make(map[string]*Policy),
	}
}

// SetIdentityPolicy pins a policy to one exact identity.
func (s *StaticSource) SetIdentityPolicy(identity Identity, policy *Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byIdentity[identity.String()] = policy
}

// SetNamespacePolicy applies a policy to every identity of a namespace that
// has no exact entry.
func (s *StaticSource) SetNamespacePolicy(namespace string, policy *Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byNamespace[namespace] = policy
}

// PolicyFor implements Source.
func (s *StaticSource) PolicyFor(_ context.Context, identity Identity) (*Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if policy, found := s.byIdentity[identity.String()]; found {
		return policy, nil
	}

	if policy, found := s.byNamespace[identity.Namespace]; found {
		return policy, nil
	}

	return nil, ErrPolicyNotFound
}
