package usecase

import (
	"errors"
	"strings"

	"github.com/blood-donation/backend/internal/domain"
)

var (
	ErrInvalidBloodGroup = errors.New("invalid blood group")
	ErrNoDonorsFound     = errors.New("no donors found")
)

type DonorUsecase struct {
	userRepo domain.UserRepository
}

func NewDonorUsecase(userRepo domain.UserRepository) *DonorUsecase {
	return &DonorUsecase{userRepo: userRepo}
}

func (u *DonorUsecase) ListDonors() ([]*domain.User, error) {
	return u.userRepo.ListAll()
}

// ListByBloodGroup returns donors of the given group. The group is
// normalized to upper case before the lookup.
func (u *DonorUsecase) ListByBloodGroup(group string) ([]*domain.User, error) {
	group = strings.ToUpper(strings.TrimSpace(group))
	if !domain.IsValidBloodGroup(group) {
		return nil, ErrInvalidBloodGroup
	}

	donors, err := u.userRepo.ListByBloodGroup(group)
	if err != nil {
		return nil, err
	}
	if len(donors) == 0 {
		return nil, ErrNoDonorsFound
	}
	return donors, nil
}

func (u *DonorUsecase) GetDonor(id string) (*domain.User, error) {
	user, err := u.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
