package booking

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/iliyamo/studio-booking/internal/model"
)

// ScopeResolver computes the set of tenant-scope identifiers ("lookup
// ids") a client is authorized against.  A studio and its owner account
// are interchangeable scope keys, and solo practitioners use their own
// account id as the studio id, so the set mixes studio and account ids on
// purpose.
//
// The only side effect is the studio back-fill in Repair, which must
// never fail the resolution itself.
type ScopeResolver struct {
	Clients  ClientDirectory
	Profiles ProfileDirectory
	Studios  StudioDirectory
}

// Resolve expands the client's affiliations into a deduplicated id set:
// the client's own studio, the inviter and the inviter's studio, and the
// owning account of whichever studio ends up known.  An empty result is
// valid and means "nothing authorized"; callers must treat it as an
// empty catalog, not as an error.
func (r *ScopeResolver) Resolve(ctx context.Context, client *model.Client) ([]uint64, error) {
	seen := make(map[uint64]struct{}, 4)
	ids := make([]uint64, 0, 4)
	add := func(id uint64) {
		if id == 0 {
			return
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	studioID := client.StudioID
	if studioID != nil {
		add(*studioID)
	}

	if client.InvitedBy != nil {
		add(*client.InvitedBy)
		prof, err := r.Profiles.ResolveProfile(ctx, *client.InvitedBy)
		switch {
		case err == nil && prof != nil && prof.StudioID != nil:
			add(*prof.StudioID)
			if studioID == nil {
				studioID = prof.StudioID
				r.Repair(ctx, client, *prof.StudioID)
			}
		case err != nil && !isNotFound(err):
			return nil, err
		}
	}

	if studioID != nil {
		owner, err := r.Studios.OwnerID(ctx, *studioID)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		add(owner)
	}
	return ids, nil
}

// Repair persists an inferred studio id onto the client record.  The
// write is idempotent (only a missing studio_id is filled in) and a
// failure is logged and swallowed so read paths keep working.
func (r *ScopeResolver) Repair(ctx context.Context, client *model.Client, studioID uint64) {
	if client.StudioID != nil {
		return
	}
	if err := r.Clients.SetStudioID(ctx, client.ID, studioID); err != nil {
		log.Printf("scope: studio back-fill for client %d failed: %v", client.ID, err)
		return
	}
	sid := studioID
	client.StudioID = &sid
}

// isNotFound accepts both the domain sentinel and the raw driver
// sentinel, since store implementations surface sql.ErrNoRows directly.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
