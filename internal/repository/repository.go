package repository

import "gorm.io/gorm"

// Atomic runs fn inside a database transaction. Services use it to keep an
// override grant and its attempt mutation in one commit. When db is nil (unit
// tests wiring fake repositories) fn runs directly.
func Atomic(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.Transaction(fn)
}
