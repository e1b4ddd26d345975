package profile_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/galatea/internal/db"
	svcErr "github.com/oggyb/galatea/internal/errors"
	"github.com/oggyb/galatea/internal/repository"
	"github.com/oggyb/galatea/internal/service/profile"
	"github.com/oggyb/galatea/internal/testutil"
)

func ptr[T any](v T) *T { return &v }

func TestGetAndUpdateProfile(t *testing.T) {
	ctx := context.Background()
	appCtx, mr := testutil.NewAppContext(t)
	svc := profile.NewService(appCtx)
	user := testutil.SeedUser(t, appCtx.DB, "sam@example.com")

	p, err := svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "sam", p.DisplayName)

	require.NoError(t, appCtx.RedisCache.SetRecommendations(ctx, user.ID, 10, []string{"x"}))

	p, err = svc.UpdateProfile(ctx, user.ID, profile.ProfileInput{
		DisplayName: ptr("<em>Sam</em> & co"),
		Age:         ptr(31),
		Interests:   &[]string{"Hiking", " ", "<script>x</script>"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sam & co", p.DisplayName)
	require.NotNil(t, p.Age)
	assert.Equal(t, 31, *p.Age)
	assert.Equal(t, db.StringList{"Hiking"}, p.Interests)
	assert.False(t, mr.Exists("recs:"+user.ID))

	_, err = svc.UpdateProfile(ctx, user.ID, profile.ProfileInput{Age: ptr(17)})
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)
	_, err = svc.UpdateProfile(ctx, user.ID, profile.ProfileInput{DisplayName: ptr("  ")})
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)
	_, err = svc.UpdateProfile(ctx, "missing", profile.ProfileInput{Bio: ptr("x")})
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
}

func TestUpdatePreferences(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := profile.NewService(appCtx)
	user := testutil.SeedUser(t, appCtx.DB, "sam@example.com")

	p, err := svc.UpdatePreferences(ctx, user.ID, profile.PreferencesInput{
		AgeRangeMin:                  ptr(25),
		AgeRangeMax:                  ptr(40),
		CommunicationStylePreference: ptr("Playful"),
	})
	require.NoError(t, err)
	assert.Equal(t, 25, p.AgeRangeMin)
	assert.Equal(t, 40, p.AgeRangeMax)
	assert.Equal(t, "Playful", p.CommunicationStylePreference)

	// partial update keeps the rest
	p, err = svc.UpdatePreferences(ctx, user.ID, profile.PreferencesInput{PreferredInterests: &[]string{"Art"}})
	require.NoError(t, err)
	assert.Equal(t, 25, p.AgeRangeMin)
	assert.Equal(t, db.StringList{"Art"}, p.PreferredInterests)

	for _, in := range []profile.PreferencesInput{
		{AgeRangeMin: ptr(50)},
		{AgeRangeMin: ptr(10)},
		{AgeRangeMax: ptr(200)},
	} {
		_, err = svc.UpdatePreferences(ctx, user.ID, in)
		assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)
	}

	got, err := svc.GetPreferences(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.AgeRangeMax, "rejected updates leave the row alone")
}

func TestStatsAndLastActive(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := profile.NewService(appCtx)
	user := testutil.SeedUser(t, appCtx.DB, "sam@example.com")

	require.NoError(t, repository.NewUserRepository(appCtx.DB).IncrementStats(ctx, user.ID, repository.StatsDelta{Swipes: 2, Likes: 1}))
	st, err := svc.GetStats(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.TotalSwipes)

	_, err = svc.GetStats(ctx, "missing")
	assert.ErrorIs(t, err, svcErr.ErrNotFound)

	require.NoError(t, svc.TouchLastActive(ctx, user.ID))
	p, err := svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, p.LastActiveAt)
}

func TestAvatarUploadAndRemove(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := profile.NewService(appCtx)
	user := testutil.SeedUser(t, appCtx.DB, "sam@example.com")

	_, err := svc.UploadAvatar(ctx, user.ID, bytes.NewReader(testutil.PNG()), 72)
	assert.ErrorIs(t, err, svcErr.ErrUpstream)

	store := testutil.NewMemoryStore()
	appCtx.WithStorage(store)
	require.NoError(t, repository.NewUserRepository(appCtx.DB).UpdateProfile(ctx, user.ID, map[string]any{
		"avatar_url": "https://cdn.test/avatars/old.png",
	}))

	url, err := svc.UploadAvatar(ctx, user.ID, bytes.NewReader(testutil.PNG()), 72)
	require.NoError(t, err)
	assert.Contains(t, url, "avatars/"+user.ID+"_")
	assert.Contains(t, url, ".png")
	assert.Equal(t, []string{"avatars/old.png"}, store.Removed)

	_, err = svc.UploadAvatar(ctx, user.ID, bytes.NewReader(testutil.PNG()), 6<<20)
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument, "over 5MB")

	store.FailUpload = true
	_, err = svc.UploadAvatar(ctx, user.ID, bytes.NewReader(testutil.PNG()), 72)
	assert.ErrorIs(t, err, svcErr.ErrUpstream)
	store.FailUpload = false

	require.NoError(t, svc.RemoveAvatar(ctx, user.ID))
	p, err := svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, p.AvatarURL)
	assert.Len(t, store.Removed, 2)
	assert.Empty(t, store.Objects)

	require.NoError(t, svc.RemoveAvatar(ctx, user.ID), "no avatar is a no-op")
}
