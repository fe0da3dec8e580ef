package services

import (
	"activation_server/repository"
	"activation_server/serviceerror"

	"gorm.io/gorm"
)

// TxRunner runs a function inside a database transaction. Services depend
// on this instead of *gorm.DB directly so state-machine tests can run
// against fake repositories without a driver.
type TxRunner func(fn func(tx *gorm.DB) error) error

// NewGormTxRunner wraps gorm's transaction handling and applies the
// configured lock-wait bound to every transaction. Lock-wait timeouts are
// translated to the transient CONCURRENCY error so callers know to retry.
func NewGormTxRunner(db *gorm.DB, lockTimeoutMillis int) TxRunner {
	return func(fn func(tx *gorm.DB) error) error {
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := repository.SetLockTimeout(tx, lockTimeoutMillis); err != nil {
				return err
			}
			return fn(tx)
		})
		if repository.IsLockTimeout(err) {
			return serviceerror.New(serviceerror.CodeConcurrency)
		}
		return err
	}
}
