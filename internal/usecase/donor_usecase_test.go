package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blood-donation/backend/internal/domain"
)

func newTestDonors(t *testing.T) *DonorUsecase {
	t.Helper()
	userRepo := newMockUserRepo()
	for _, u := range []*domain.User{
		{ID: "USER_00000001", Name: "Ali", LastName: "Khan", PhoneNumber: "03001111111", BloodGroup: "O+", City: "Lahore", Country: "Pakistan"},
		{ID: "USER_00000002", Name: "Sara", LastName: "Ahmed", PhoneNumber: "03002222222", BloodGroup: "AB-", City: "Karachi", Country: "Pakistan"},
		{ID: "USER_00000003", Name: "Bilal", LastName: "Raza", PhoneNumber: "03003333333", BloodGroup: "O+", City: "Multan", Country: "Pakistan"},
	} {
		require.NoError(t, userRepo.Create(u))
	}
	return NewDonorUsecase(userRepo)
}

func TestListByBloodGroup(t *testing.T) {
	donors := newTestDonors(t)

	users, err := donors.ListByBloodGroup("O+")
	require.NoError(t, err)
	assert.Len(t, users, 2)

	// Lookup normalizes case and whitespace.
	users, err = donors.ListByBloodGroup(" ab- ")
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, "Sara", users[0].Name)
}

func TestListByBloodGroupInvalid(t *testing.T) {
	donors := newTestDonors(t)

	_, err := donors.ListByBloodGroup("C+")
	assert.ErrorIs(t, err, ErrInvalidBloodGroup)
}

func TestListByBloodGroupEmpty(t *testing.T) {
	donors := newTestDonors(t)

	_, err := donors.ListByBloodGroup("B-")
	assert.ErrorIs(t, err, ErrNoDonorsFound)
}

func TestGetDonor(t *testing.T) {
	donors := newTestDonors(t)

	user, err := donors.GetDonor("USER_00000002")
	require.NoError(t, err)
	assert.Equal(t, "Sara", user.Name)

	_, err = donors.GetDonor("USER_FFFFFFFF")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
