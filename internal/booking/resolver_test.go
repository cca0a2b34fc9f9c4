package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/model"
)

func newResolver(clients *fakeClients, profiles *fakeProfiles, studios *fakeStudios) *ScopeResolver {
	return &ScopeResolver{Clients: clients, Profiles: profiles, Studios: studios}
}

func TestResolveClientWithStudio(t *testing.T) {
	clients := &fakeClients{byUser: map[uint64]*model.Client{
		1: {ID: 1, UserID: 1, StudioID: u64(10)},
	}}
	studios := &fakeStudios{studios: map[uint64]*model.Studio{10: {ID: 10, OwnerID: 100}}}
	r := newResolver(clients, &fakeProfiles{}, studios)

	ids, err := r.Resolve(context.Background(), clients.byUser[1])
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 100}, ids)
}

func TestResolveInvitedClientBackfillsStudio(t *testing.T) {
	client := &model.Client{ID: 2, UserID: 2, InvitedBy: u64(100)}
	clients := &fakeClients{byUser: map[uint64]*model.Client{2: client}}
	profiles := &fakeProfiles{profiles: map[uint64]*model.Profile{
		100: {UserID: 100, Role: model.RoleOwner, StudioID: u64(10)},
	}}
	studios := &fakeStudios{studios: map[uint64]*model.Studio{10: {ID: 10, OwnerID: 100}}}
	r := newResolver(clients, profiles, studios)

	ids, err := r.Resolve(context.Background(), client)
	require.NoError(t, err)
	// Inviter, inviter's studio; the owner is the inviter again.
	assert.Equal(t, []uint64{100, 10}, ids)

	// The inferred studio was persisted onto the client record.
	require.NotNil(t, client.StudioID)
	assert.Equal(t, uint64(10), *client.StudioID)
	assert.Equal(t, []uint64{10}, clients.repairs)
}

func TestResolveSoloTrainerInviter(t *testing.T) {
	// A solo practitioner's account id doubles as the studio id, so the
	// inviter's profile points at their own user id and no studios row
	// exists for it.
	client := &model.Client{ID: 3, UserID: 3, InvitedBy: u64(50)}
	clients := &fakeClients{byUser: map[uint64]*model.Client{3: client}}
	profiles := &fakeProfiles{profiles: map[uint64]*model.Profile{
		50: {UserID: 50, Role: model.RoleTrainer, StudioID: u64(50)},
	}}
	r := newResolver(clients, profiles, &fakeStudios{studios: map[uint64]*model.Studio{}})

	ids, err := r.Resolve(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, []uint64{50}, ids)
}

func TestResolveUnknownInviterProfile(t *testing.T) {
	client := &model.Client{ID: 4, UserID: 4, InvitedBy: u64(999)}
	clients := &fakeClients{byUser: map[uint64]*model.Client{4: client}}
	r := newResolver(clients, &fakeProfiles{}, &fakeStudios{studios: map[uint64]*model.Studio{}})

	ids, err := r.Resolve(context.Background(), client)
	require.NoError(t, err, "a vanished inviter account must not break resolution")
	assert.Equal(t, []uint64{999}, ids)
	assert.Nil(t, client.StudioID)
}

func TestResolveProfileErrorPropagates(t *testing.T) {
	client := &model.Client{ID: 5, UserID: 5, InvitedBy: u64(100)}
	clients := &fakeClients{byUser: map[uint64]*model.Client{5: client}}
	boom := errors.New("connection reset")
	r := newResolver(clients, &fakeProfiles{err: boom}, &fakeStudios{studios: map[uint64]*model.Studio{}})

	_, err := r.Resolve(context.Background(), client)
	assert.ErrorIs(t, err, boom)
}

func TestResolveUnaffiliatedClient(t *testing.T) {
	client := &model.Client{ID: 6, UserID: 6}
	clients := &fakeClients{byUser: map[uint64]*model.Client{6: client}}
	r := newResolver(clients, &fakeProfiles{}, &fakeStudios{studios: map[uint64]*model.Studio{}})

	ids, err := r.Resolve(context.Background(), client)
	require.NoError(t, err)
	assert.Empty(t, ids, "no affiliations resolves to an empty scope, not an error")
}

func TestRepairLeavesExistingStudioAlone(t *testing.T) {
	client := &model.Client{ID: 7, UserID: 7, StudioID: u64(10)}
	clients := &fakeClients{byUser: map[uint64]*model.Client{7: client}}
	r := newResolver(clients, &fakeProfiles{}, &fakeStudios{studios: map[uint64]*model.Studio{}})

	r.Repair(context.Background(), client, 99)
	assert.Empty(t, clients.repairs)
	assert.Equal(t, uint64(10), *client.StudioID)
}
