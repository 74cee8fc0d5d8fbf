package repository

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"bloodlink/internal/domain"
)

type Repositories struct {
	User         UserRepository
	Projection   InventoryProjectionWriter
	BloodUnit    BloodUnitRepository
	BloodRequest BloodRequestRepository
	Notification NotificationRepository
	BloodOffer   BloodOfferRepository
	Transfer     TransferRepository
	Session      SessionRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Projection:   NewInventoryProjectionWriter(db),
		BloodUnit:    NewBloodUnitRepository(db),
		BloodRequest: NewBloodRequestRepository(db),
		Notification: NewNotificationRepository(db),
		BloodOffer:   NewBloodOfferRepository(db),
		Transfer:     NewTransferRepository(db),
		Session:      NewSessionRepository(db),
	}
}

// matched reports whether a conditional statement affected a row.
func matched(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func expectOne(res sql.Result, notFound string) error {
	ok, err := matched(res)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFound("%s", notFound)
	}
	return nil
}
