package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

const (
	ClaimAdded        = "added"
	ClaimKeptExisting = "kept_existing"
	ClaimConflict     = "conflict"

	ResolveMethodClaim     = "existing_claim"
	ResolveMethodInference = "domain_inference"
	ResolveMethodCreated   = "auto_created"
)

var validClaimTypes = map[string]bool{
	"email":       true,
	"phone":       true,
	"name":        true,
	"handle":      true,
	"domain":      true,
	"external_id": true,
	"alias":       true,
}

type ResolveResult struct {
	Profile *types.IdentityProfile `json:"profile"`
	Created bool                   `json:"created"`
	Method  string                 `json:"method"`
}

type AddClaimResult struct {
	Status            string             `json:"status"`
	Claim             *types.IdentityClaim `json:"claim,omitempty"`
	ConflictProfileID *uuid.UUID         `json:"conflict_profile_id,omitempty"`
}

type MergeResult struct {
	ToProfile   *types.IdentityProfile `json:"to_profile"`
	ClaimsMoved int                    `json:"claims_moved"`
	OperationID uuid.UUID              `json:"operation_id"`
}

type IdentityService interface {
	Resolve(ctx context.Context, claimType, value string, createIfMissing bool, source string) (*ResolveResult, error)
	AddClaim(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, claimType, value, source string, confidence float64) (*AddClaimResult, error)
	MergeProfiles(ctx context.Context, fromIDs []uuid.UUID, toID uuid.UUID, actor, reason string) (*MergeResult, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*types.IdentityProfile, error)
	GetStats(ctx context.Context) (map[string]int64, error)
}

type identityService struct {
	db         *gorm.DB
	log        *logger.Logger
	profiles   repos.IdentityProfileRepo
	claims     repos.IdentityClaimRepo
	operations repos.IdentityOperationRepo
}

func NewIdentityService(db *gorm.DB, baseLog *logger.Logger, profiles repos.IdentityProfileRepo, claims repos.IdentityClaimRepo, operations repos.IdentityOperationRepo) IdentityService {
	return &identityService{
		db:         db,
		log:        baseLog.With("service", "IdentityService"),
		profiles:   profiles,
		claims:     claims,
		operations: operations,
	}
}

// NormalizeClaimValue canonicalizes a raw identifier so equality checks are
// format-insensitive. The normalized form is what claims are keyed on.
func NormalizeClaimValue(claimType, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", fmt.Errorf("empty claim value")
	}
	switch claimType {
	case "email":
		return strings.ToLower(v), nil
	case "phone":
		var b strings.Builder
		for i, r := range v {
			if r == '+' && i == 0 {
				b.WriteRune(r)
				continue
			}
			if r >= '0' && r <= '9' {
				b.WriteRune(r)
			}
		}
		if b.Len() == 0 {
			return "", fmt.Errorf("phone claim has no digits")
		}
		return b.String(), nil
	case "name", "handle", "alias":
		return strings.Join(strings.Fields(strings.ToLower(v)), " "), nil
	case "external_id":
		return v, nil
	case "domain":
		d := strings.ToLower(v)
		d = strings.TrimPrefix(d, "http://")
		d = strings.TrimPrefix(d, "https://")
		d = strings.TrimPrefix(d, "www.")
		d = strings.TrimSuffix(strings.TrimSpace(d), "/")
		if d == "" {
			return "", fmt.Errorf("empty domain claim")
		}
		return d, nil
	default:
		return "", fmt.Errorf("unknown claim type: %q", claimType)
	}
}

func emailDomain(normalizedEmail string) string {
	at := strings.LastIndex(normalizedEmail, "@")
	if at < 0 || at == len(normalizedEmail)-1 {
		return ""
	}
	return normalizedEmail[at+1:]
}

// followMerges walks merged_into pointers to the surviving profile. Chains
// are short in practice; the depth cap guards against a cycle from bad data.
func (s *identityService) followMerges(ctx context.Context, tx *gorm.DB, p *types.IdentityProfile) (*types.IdentityProfile, error) {
	for depth := 0; depth < 16; depth++ {
		if p == nil || p.Status != "merged" || p.MergedIntoID == nil {
			return p, nil
		}
		next, err := s.profiles.GetByID(ctx, tx, *p.MergedIntoID)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return p, nil
		}
		p = next
	}
	return nil, fmt.Errorf("merge chain too deep for profile %s", p.ID)
}

func (s *identityService) Resolve(ctx context.Context, claimType, value string, createIfMissing bool, source string) (*ResolveResult, error) {
	if !validClaimTypes[claimType] {
		return nil, fmt.Errorf("unknown claim type: %q", claimType)
	}
	normalized, err := NormalizeClaimValue(claimType, value)
	if err != nil {
		return nil, err
	}

	var result *ResolveResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim, err := s.claims.GetActiveByTypeAndValue(ctx, tx, claimType, normalized)
		if err != nil {
			return err
		}
		if claim != nil {
			p, err := s.profiles.GetByID(ctx, tx, claim.ProfileID)
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("claim %s references missing profile %s", claim.ID, claim.ProfileID)
			}
			p, err = s.followMerges(ctx, tx, p)
			if err != nil {
				return err
			}
			result = &ResolveResult{Profile: p, Created: false, Method: ResolveMethodClaim}
			return nil
		}
		if !createIfMissing {
			result = &ResolveResult{Profile: nil, Created: false, Method: ""}
			return nil
		}

		profile := &types.IdentityProfile{
			ID:     uuid.New(),
			Type:   "person",
			Status: "active",
		}
		confidence := 0.7
		method := ResolveMethodCreated

		switch claimType {
		case "email":
			profile.CanonicalEmail = normalized
			// A known org owning the address's domain raises confidence and
			// records the affiliation on the new profile.
			if dom := emailDomain(normalized); dom != "" {
				domClaim, err := s.claims.GetActiveByTypeAndValue(ctx, tx, "domain", dom)
				if err != nil {
					return err
				}
				if domClaim != nil {
					org, err := s.profiles.GetByID(ctx, tx, domClaim.ProfileID)
					if err != nil {
						return err
					}
					org, err = s.followMerges(ctx, tx, org)
					if err != nil {
						return err
					}
					if org != nil && org.Type == "org" && org.Status == "active" {
						attrs, _ := json.Marshal(map[string]any{"org_profile_id": org.ID.String()})
						profile.Attributes = datatypes.JSON(attrs)
						confidence = 0.9
						method = ResolveMethodInference
					}
				}
			}
		case "domain":
			profile.Type = "org"
			profile.CanonicalDomain = normalized
		case "name":
			profile.CanonicalName = normalized
		}

		if _, err := s.profiles.Create(ctx, tx, []*types.IdentityProfile{profile}); err != nil {
			return err
		}
		row := &types.IdentityClaim{
			ID:              uuid.New(),
			ProfileID:       profile.ID,
			ClaimType:       claimType,
			Value:           strings.TrimSpace(value),
			ValueNormalized: normalized,
			Source:          source,
			Confidence:      confidence,
			Status:          "active",
		}
		if _, err := s.claims.Create(ctx, tx, []*types.IdentityClaim{row}); err != nil {
			return err
		}
		result = &ResolveResult{Profile: profile, Created: true, Method: method}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *identityService) AddClaim(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, claimType, value, source string, confidence float64) (*AddClaimResult, error) {
	if !validClaimTypes[claimType] {
		return nil, fmt.Errorf("unknown claim type: %q", claimType)
	}
	if confidence <= 0 || confidence > 1 {
		return nil, fmt.Errorf("confidence must be in (0, 1], got %v", confidence)
	}
	normalized, err := NormalizeClaimValue(claimType, value)
	if err != nil {
		return nil, err
	}

	var result *AddClaimResult
	run := func(t *gorm.DB) error {
		profile, err := s.profiles.GetByID(ctx, t, profileID)
		if err != nil {
			return err
		}
		if profile == nil || profile.Status != "active" {
			return fmt.Errorf("profile %s is not active", profileID)
		}
		existing, err := s.claims.GetActiveByTypeAndValue(ctx, t, claimType, normalized)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.ProfileID == profileID {
				if confidence > existing.Confidence {
					existing.Confidence = confidence
					if err := s.claims.Update(ctx, t, existing); err != nil {
						return err
					}
				}
				result = &AddClaimResult{Status: ClaimKeptExisting, Claim: existing}
				return nil
			}
			// The same identifier already belongs to someone else. That is a
			// signal for a human merge decision, not a write error.
			other := existing.ProfileID
			result = &AddClaimResult{Status: ClaimConflict, Claim: existing, ConflictProfileID: &other}
			return nil
		}
		row := &types.IdentityClaim{
			ID:              uuid.New(),
			ProfileID:       profileID,
			ClaimType:       claimType,
			Value:           strings.TrimSpace(value),
			ValueNormalized: normalized,
			Source:          source,
			Confidence:      confidence,
			Status:          "active",
		}
		if _, err := s.claims.Create(ctx, t, []*types.IdentityClaim{row}); err != nil {
			return err
		}
		result = &AddClaimResult{Status: ClaimAdded, Claim: row}
		return nil
	}

	if tx != nil {
		if err := run(tx); err != nil {
			return nil, err
		}
		return result, nil
	}
	if err := s.db.WithContext(ctx).Transaction(run); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *identityService) MergeProfiles(ctx context.Context, fromIDs []uuid.UUID, toID uuid.UUID, actor, reason string) (*MergeResult, error) {
	if len(fromIDs) == 0 {
		return nil, fmt.Errorf("no source profiles given")
	}
	if toID == uuid.Nil {
		return nil, fmt.Errorf("target profile is required")
	}
	for _, id := range fromIDs {
		if id == toID {
			return nil, fmt.Errorf("cannot merge profile %s into itself", toID)
		}
	}

	var result *MergeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := s.profiles.GetByID(ctx, tx, toID)
		if err != nil {
			return err
		}
		if target == nil || target.Status != "active" {
			return fmt.Errorf("target profile %s is not active", toID)
		}
		sources, err := s.profiles.GetByIDs(ctx, tx, fromIDs)
		if err != nil {
			return err
		}
		if len(sources) != len(fromIDs) {
			return fmt.Errorf("merge references %d profiles, found %d", len(fromIDs), len(sources))
		}
		for _, p := range sources {
			if p.Status != "active" {
				return fmt.Errorf("source profile %s is not active", p.ID)
			}
			if p.Type != target.Type {
				return fmt.Errorf("cannot merge %s profile %s into %s profile %s", p.Type, p.ID, target.Type, target.ID)
			}
		}

		claims, err := s.claims.GetActiveByProfileIDs(ctx, tx, fromIDs)
		if err != nil {
			return err
		}
		claimIDs := make([]uuid.UUID, 0, len(claims))
		for _, c := range claims {
			claimIDs = append(claimIDs, c.ID)
		}
		if err := s.claims.MoveToProfile(ctx, tx, claimIDs, toID); err != nil {
			return err
		}

		for _, p := range sources {
			p.Status = "merged"
			id := toID
			p.MergedIntoID = &id
			if err := s.profiles.Update(ctx, tx, p); err != nil {
				return err
			}
		}

		fromRaw, _ := json.Marshal(fromIDs)
		op := &types.IdentityOperation{
			ID:             uuid.New(),
			Operation:      "merge_profiles",
			FromProfileIDs: datatypes.JSON(fromRaw),
			ToProfileID:    toID,
			Reason:         reason,
			Actor:          actor,
			ClaimsMoved:    len(claimIDs),
		}
		if err := s.operations.Create(ctx, tx, op); err != nil {
			return err
		}
		result = &MergeResult{ToProfile: target, ClaimsMoved: len(claimIDs), OperationID: op.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *identityService) GetProfile(ctx context.Context, id uuid.UUID) (*types.IdentityProfile, error) {
	p, err := s.profiles.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *identityService) GetStats(ctx context.Context) (map[string]int64, error) {
	return s.profiles.CountByStatus(ctx, nil)
}
