// Package access derives a visitor's effective access level from their
// verified identity and the exam's optional predicates.
package access

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/examforge/sessiond/internal/model"
)

// Beacon is the fire-and-forget visit logger. Failures are swallowed;
// resolution never blocks on it.
type Beacon interface {
	LogVisit(ctx context.Context, quiz, email string)
}

// Resolution is the outcome of resolving access for one session load.
type Resolution struct {
	Level model.AccessLevel
	// Effective is the identity the session runs as. It differs from the
	// real identity only under admin impersonation.
	Effective model.Identity
	// Impersonated is set when an admin is acting as another visitor.
	Impersonated bool
}

// Resolver computes access levels and emits visit beacons.
type Resolver struct {
	beacon Beacon
	log    zerolog.Logger
}

// NewResolver creates a Resolver. beacon may be nil to disable visit logging.
func NewResolver(beacon Beacon, log zerolog.Logger) *Resolver {
	return &Resolver{
		beacon: beacon,
		log:    log.With().Str("component", "access_resolver").Logger(),
	}
}

// Resolve applies the precedence admin > allowed > read-only > denied.
// A missing allowed-predicate defaults to allowed; a missing read
// predicate defaults to denied. impersonate is honored for admins only
// and is audit-logged; the beacon always reports the real identity.
func (r *Resolver) Resolve(ctx context.Context, desc *model.ExamDescriptor, identity model.Identity, impersonate string) Resolution {
	if r.beacon != nil {
		go r.beacon.LogVisit(context.WithoutCancel(ctx), desc.ID, identity.Email)
	}

	if desc.Admin != nil && desc.Admin(identity.Email) {
		if impersonate != "" && impersonate != identity.Email {
			r.log.Warn().
				Str("exam_id", desc.ID).
				Str("admin", identity.Email).
				Str("as", impersonate).
				Msg("Admin impersonation")
			effective := identity
			effective.Email = impersonate
			return Resolution{Level: model.AccessAdmin, Effective: effective, Impersonated: true}
		}
		return Resolution{Level: model.AccessAdmin, Effective: identity}
	}

	allowed := true
	if desc.Allowed != nil {
		allowed = desc.Allowed(identity.Email)
	}
	if allowed {
		return Resolution{Level: model.AccessAllowed, Effective: identity}
	}

	if desc.Read != nil && desc.Read(identity.Email) {
		return Resolution{Level: model.AccessReadOnly, Effective: identity}
	}

	return Resolution{Level: model.AccessDenied, Effective: identity}
}
