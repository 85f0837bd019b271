package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aussiebroadwan/wgportal/internal/portal/domain"
	"github.com/aussiebroadwan/wgportal/internal/portal/store"
	"github.com/aussiebroadwan/wgportal/internal/portal/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func TestWithTxCommitAndRollback(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE users SET last_login_at").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		s := sqlite.NewStoreFromDB(db)
		err = s.WithTx(ctx, func(tx store.Tx) error {
			return tx.Users().UpdateLastLogin(ctx, "u1", t0)
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver error rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		boom := errors.New("disk I/O error")
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO users").WillReturnError(boom)
		mock.ExpectRollback()

		s := sqlite.NewStoreFromDB(db)
		err = s.WithTx(ctx, func(tx store.Tx) error {
			return tx.Users().CreateUser(ctx, domain.User{ID: "u1", Username: "alice"})
		})
		require.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows is not found and rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM peers").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		s := sqlite.NewStoreFromDB(db)
		err = s.WithTx(ctx, func(tx store.Tx) error {
			return tx.Peers().DeletePeer(ctx, "p1", "u1")
		})
		require.ErrorIs(t, err, store.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin().WillReturnError(sql.ErrConnDone)

		s := sqlite.NewStoreFromDB(db)
		called := false
		err = s.WithTx(ctx, func(store.Tx) error { called = true; return nil })
		require.ErrorIs(t, err, sql.ErrConnDone)
		require.False(t, called)
	})
}

func TestNestedTxRefused(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Tx(ctx)
		require.ErrorIs(t, err, sql.ErrTxDone)
		return tx.WithTx(ctx, func(store.Tx) error { return nil })
	})
	require.ErrorIs(t, err, sql.ErrTxDone)
}
