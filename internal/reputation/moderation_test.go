package reputation

import (
	"context"
	"errors"
	"testing"

	"github.com/gdg-garage/reputation-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmblem(t *testing.T) {
	svc, db := newTestService(t)
	createUser(t, db, 1, "anne")
	ctx := context.Background()

	_, err := svc.ImportJSON(ctx, 1, athena(`{"#Name": "e1", "Completed": true}`))
	require.NoError(t, err)
	id := emblemByKey(t, db, "e1").ID

	emblem, err := svc.ValidateEmblem(ctx, id)
	require.NoError(t, err)
	assert.True(t, emblem.Validated)

	_, err = svc.ImportJSON(ctx, 1, athena(`{"#Name": "e1", "Completed": true}`))
	require.NoError(t, err)
	assert.True(t, emblemByKey(t, db, "e1").Validated, "reimport must not unvalidate")

	_, err = svc.ValidateEmblem(ctx, 9999)
	assert.True(t, errors.Is(err, ErrEmblemNotFound))
}

func TestReplaceEmblemGradeThresholds(t *testing.T) {
	svc, db := newTestService(t)
	createUser(t, db, 1, "anne")
	ctx := context.Background()

	_, err := svc.ImportJSON(ctx, 1, athena(`{"#Name": "legend", "MaxGrade": 5, "Grade": 2, "Threshold": 500}`))
	require.NoError(t, err)
	id := emblemByKey(t, db, "legend").ID

	err = svc.ReplaceEmblemGradeThresholds(ctx, id, []GradeStep{
		{Grade: 3, Threshold: 1500},
		{Grade: 1, Threshold: 100},
		{Grade: 0, Threshold: 10},
		{Grade: 4, Threshold: 0},
	})
	require.NoError(t, err)

	steps, err := svc.GetEmblemGradeThresholds(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []GradeStep{{Grade: 1, Threshold: 100}, {Grade: 3, Threshold: 1500}}, steps)

	err = svc.ReplaceEmblemGradeThresholds(ctx, 9999, nil)
	assert.True(t, errors.Is(err, ErrEmblemNotFound))
}

func TestEmblemTranslations(t *testing.T) {
	svc, db := newTestService(t)
	createUser(t, db, 1, "anne")
	ctx := context.Background()

	_, err := svc.ImportJSON(ctx, 1, athena(`{"#Name": "e1", "Completed": true}`))
	require.NoError(t, err)
	id := emblemByKey(t, db, "e1").ID

	en, es, empty := "Sea Legend", "Leyenda", ""
	err = svc.SetEmblemTranslations(ctx, id, []TranslationInput{
		{Locale: "en", Name: &en},
		{Locale: "es", Description: &es},
		{Locale: "de", Name: &en},
	})
	require.NoError(t, err)

	got, err := svc.GetEmblemTranslations(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, en, *got["en"].Name)
	assert.Nil(t, got["en"].Description)
	assert.Equal(t, es, *got["es"].Description)

	require.NoError(t, svc.SetEmblemTranslations(ctx, id, []TranslationInput{{Locale: "en", Name: &empty}}))
	got, err = svc.GetEmblemTranslations(ctx, id)
	require.NoError(t, err)
	assert.NotContains(t, got, "en")
	assert.Contains(t, got, "es")
}

func TestListTaxonomy(t *testing.T) {
	svc, db := newTestService(t)
	createUser(t, db, 1, "anne")
	createUser(t, db, 2, "bonny")
	ctx := context.Background()

	_, err := svc.ImportJSON(ctx, 1, athena(`{"#Name": "e1", "Completed": true}`, `{"#Name": "e2"}`))
	require.NoError(t, err)
	_, err = svc.ImportJSON(ctx, 2, athena(`{"#Name": "e1", "Completed": true}`))
	require.NoError(t, err)

	taxonomy, err := svc.ListTaxonomy(ctx)
	require.NoError(t, err)
	require.Len(t, taxonomy, 1)
	require.Len(t, taxonomy[0].Campaigns, 1)
	emblems := taxonomy[0].Campaigns[0].Emblems
	require.Len(t, emblems, 2)
	assert.Equal(t, "e1", emblems[0].Key)
	assert.Equal(t, int64(2), emblems[0].UserCount)
	assert.False(t, emblems[0].Validated)
	assert.Equal(t, int64(1), emblems[1].UserCount)
}

func TestDeleteUserReputationData(t *testing.T) {
	svc, db := newTestService(t)
	createUser(t, db, 1, "anne")
	createUser(t, db, 2, "bonny")
	ctx := context.Background()

	for _, id := range []uint{1, 2} {
		_, err := svc.ImportJSON(ctx, id, athena(`{"#Name": "legend", "MaxGrade": 5, "Grade": 2, "Threshold": 500}`))
		require.NoError(t, err)
	}

	require.NoError(t, svc.DeleteUserReputationData(ctx, 1))

	var remaining []models.UserEmblem
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, uint(2), remaining[0].UserID)
	assert.Equal(t, int64(1), countRows(t, db, "emblem_grade_thresholds"))

	var user models.User
	require.NoError(t, db.First(&user, 1).Error)
	assert.Nil(t, user.LastImportAt)

	assert.True(t, errors.Is(svc.DeleteUserReputationData(ctx, 404), ErrUserNotFound))
}
