// Package postgres stores user security records in PostgreSQL.
//
// [UserStore] implements account.Store over a pgx connection pool. SaveUser
// is a single upsert statement keyed by id, and a unique index on
// LOWER(email) turns a second registration of the same address into
// account.ErrDuplicateEmail.
//
// [Migrator] applies the embedded schema with golang-migrate.
//
// Infrastructure failures carry samber/oops codes: USER_NOT_FOUND,
// USER_LOOKUP_FAILED, USER_DUPLICATE_EMAIL, USER_SAVE_FAILED and the
// MIGRATION_* family.
package postgres
