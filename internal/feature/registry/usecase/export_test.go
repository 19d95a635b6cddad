package usecase

import "time"

// SetNow replaces the clock used for last_updated.
func (u *RegistryUsecase) SetNow(now func() time.Time) {
	u.now = now
}
