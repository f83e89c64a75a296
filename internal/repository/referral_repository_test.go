package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnicore/omniaudit/internal/domain"
)

func TestReferralRepository_Redeem(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresReferralRepository(db, nil)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE referral_codes SET uses").
		WithArgs("ABC123").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("referrer"))
	mock.ExpectQuery("INSERT INTO referral_rewards").
		WithArgs("referrer", "newbie", "ABC123", 25, "granted").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), now))
	mock.ExpectCommit()

	reward, err := repo.Redeem(context.Background(), "ABC123", "newbie", 25)
	require.NoError(t, err)
	assert.Equal(t, "referrer", reward.UserID)
	assert.Equal(t, 25, reward.Credits)
}

func TestReferralRepository_RedeemUnknownCodeRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresReferralRepository(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE referral_codes SET uses").
		WithArgs("NOPE").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	mock.ExpectRollback()

	_, err := repo.Redeem(context.Background(), "NOPE", "newbie", 25)
	assert.ErrorIs(t, err, domain.ErrInvalidReferral)
}

func TestReferralRepository_Stats(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresReferralRepository(db, nil)

	mock.ExpectQuery("FROM referral_codes").
		WillReturnRows(sqlmock.NewRows([]string{"codes", "redemptions", "credits"}).AddRow(4, 2, 50))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &domain.ReferralStats{Codes: 4, Redemptions: 2, CreditsGiven: 50}, stats)
}
