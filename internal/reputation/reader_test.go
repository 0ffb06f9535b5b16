package reputation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sharedEmblem = `{"#Name": "legend", "DisplayName": "Legend", "MaxGrade": 5, "Grade": %d, "Value": %d, "Threshold": %d}`

func seedThreeUsers(t *testing.T) (*Service, uint) {
	t.Helper()
	svc, db := newTestService(t)
	ctx := context.Background()
	createUser(t, db, 1, "anne")
	createUser(t, db, 2, "bonny")
	createUser(t, db, 3, "calico")

	for id, grade := range map[uint]int{1: 1, 2: 2, 3: 3} {
		raw := athena(fmt.Sprintf(sharedEmblem, grade, grade*100, grade*100), `{"#Name": "hidden", "Completed": true}`)
		_, err := svc.ImportJSON(ctx, id, raw)
		require.NoError(t, err)
	}

	legend := emblemByKey(t, db, "legend")
	_, err := svc.ValidateEmblem(ctx, legend.ID)
	require.NoError(t, err)
	return svc, legend.ID
}

func TestGetUserReputations(t *testing.T) {
	svc, legendID := seedThreeUsers(t)

	reps, err := svc.GetUserReputations(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "bonny", reps.User.Username)
	require.NotNil(t, reps.User.LastImportAt)

	require.Len(t, reps.Factions, 1)
	require.Len(t, reps.Factions[0].Campaigns, 1)
	emblems := reps.Factions[0].Campaigns[0].Emblems
	require.Len(t, emblems, 1, "unvalidated emblems are hidden")

	legend := emblems[0]
	assert.Equal(t, legendID, legend.ID)
	assert.Equal(t, "AthenasFortune", legend.FactionKey)
	assert.Equal(t, []GradeStep{{1, 100}, {2, 200}, {3, 300}}, legend.GradeThresholds)
	require.NotNil(t, legend.MaxThreshold)
	assert.Equal(t, int64(300), *legend.MaxThreshold)
	require.NotNil(t, legend.Progress)
	assert.Equal(t, 2, legend.Progress.Grade)
	assert.Equal(t, int64(200), legend.Progress.Value)
}

func TestGetUserReputations_NoProgress(t *testing.T) {
	svc, _ := seedThreeUsers(t)
	createUser(t, svc.db, 4, "davy")

	reps, err := svc.GetUserReputations(context.Background(), 4)
	require.NoError(t, err)
	assert.Nil(t, reps.Factions[0].Campaigns[0].Emblems[0].Progress)
	assert.Nil(t, reps.User.LastImportAt)
}

func TestGetUserReputations_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetUserReputations(context.Background(), 404)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestGetGroupReputations_OnlyMembers(t *testing.T) {
	svc, _ := seedThreeUsers(t)

	reps, err := svc.GetGroupReputations(context.Background(), []uint{1, 2})
	require.NoError(t, err)
	require.Len(t, reps.Users, 2)
	assert.Equal(t, "anne", reps.Users[0].Username)
	assert.Equal(t, "bonny", reps.Users[1].Username)

	legend := reps.Factions[0].Campaigns[0].Emblems[0]
	require.Len(t, legend.UserProgress, 2)
	assert.Equal(t, 1, legend.UserProgress[1].Grade)
	assert.Equal(t, 2, legend.UserProgress[2].Grade)
	_, leaked := legend.UserProgress[3]
	assert.False(t, leaked)
	assert.Len(t, legend.GradeThresholds, 3, "thresholds are shared knowledge")
}

func TestGetGroupReputations_Empty(t *testing.T) {
	svc, _ := seedThreeUsers(t)

	reps, err := svc.GetGroupReputations(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, reps.Users)
	assert.Empty(t, reps.Factions)
}

func TestGetUserReputations_Locale(t *testing.T) {
	svc, legendID := seedThreeUsers(t)
	ctx := context.Background()

	name := "Legend of the Veil"
	require.NoError(t, svc.SetEmblemTranslations(ctx, legendID, []TranslationInput{{Locale: "en", Name: &name}}))

	reps, err := svc.GetUserReputations(ctx, 1, WithLocale("en"))
	require.NoError(t, err)
	assert.Equal(t, name, reps.Factions[0].Campaigns[0].Emblems[0].Name)

	reps, err = svc.GetUserReputations(ctx, 1, WithLocale("es"))
	require.NoError(t, err)
	assert.Equal(t, "Legend", reps.Factions[0].Campaigns[0].Emblems[0].Name)

	reps, err = svc.GetUserReputations(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Legend", reps.Factions[0].Campaigns[0].Emblems[0].Name)
}

func TestReputations_NestingOrder(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	createUser(t, db, 1, "anne")

	// GoldHoarders sorts before MerchantAlliance by key but after it by name.
	export := `{
		"GoldHoarders": {"Motto": "", "Emblems": {"Emblems": [{"#Name": "gold", "Grade": 1}]}},
		"MerchantAlliance": {"Motto": "Le commerce avant tout", "Campaigns": {
			"cargo": {"Title": "Cargo", "Emblems": [{"#Name": "crates"}, {"#Name": "barrels"}]},
			"sales": {"Title": "Sales", "Emblems": [{"#Name": "coins"}]}
		}}
	}`
	_, err := svc.ImportJSON(ctx, 1, []byte(export))
	require.NoError(t, err)
	for _, key := range []string{"gold", "crates", "barrels", "coins"} {
		_, err := svc.ValidateEmblem(ctx, emblemByKey(t, db, key).ID)
		require.NoError(t, err)
	}

	reordered := `{
		"MerchantAlliance": {"Motto": "Le commerce avant tout", "Campaigns": {
			"sales": {"Title": "Sales", "Emblems": [{"#Name": "coins"}]},
			"cargo": {"Title": "Cargo", "Emblems": [{"#Name": "barrels"}, {"#Name": "crates"}]}
		}}
	}`
	_, err = svc.ImportJSON(ctx, 1, []byte(reordered))
	require.NoError(t, err)

	type node struct {
		faction  string
		campaign string
		emblems  []string
	}
	want := []node{
		{"MerchantAlliance", "sales", []string{"coins"}},
		{"MerchantAlliance", "cargo", []string{"barrels", "crates"}},
		{"GoldHoarders", "default", []string{"gold"}},
	}

	userReps, err := svc.GetUserReputations(ctx, 1)
	require.NoError(t, err)
	var got []node
	for _, f := range userReps.Factions {
		for _, c := range f.Campaigns {
			n := node{faction: f.Key, campaign: c.Key}
			for _, e := range c.Emblems {
				n.emblems = append(n.emblems, e.Key)
			}
			got = append(got, n)
		}
	}
	assert.Equal(t, want, got)

	groupReps, err := svc.GetGroupReputations(ctx, []uint{1})
	require.NoError(t, err)
	got = nil
	for _, f := range groupReps.Factions {
		for _, c := range f.Campaigns {
			n := node{faction: f.Key, campaign: c.Key}
			for _, e := range c.Emblems {
				n.emblems = append(n.emblems, e.Key)
			}
			got = append(got, n)
		}
	}
	assert.Equal(t, want, got)
}
