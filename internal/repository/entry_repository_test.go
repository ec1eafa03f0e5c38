package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/finance-control-api/internal/model"
)

var entryCols = []string{"id", "user_id", "label", "type", "value", "registered_at", "created_at", "updated_at"}

func expectEntryReload(mock sqlmock.Sqlmock, id int, at time.Time, categoryIDs ...int) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+entryColumns+" FROM entries WHERE id=?")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(entryCols).AddRow(id, 7, "Lunch", 0, 12.5, at, at, at))
	rows := sqlmock.NewRows([]string{"entry_id", "id", "user_id", "label", "color", "created_at", "updated_at"})
	for _, c := range categoryIDs {
		rows.AddRow(id, c, 7, "Food", "#00ff00", at, at)
	}
	mock.ExpectQuery(regexp.QuoteMeta("FROM entry_categories ec JOIN categories c")).
		WithArgs(id).
		WillReturnRows(rows)
}

func TestEntryCreateDeduplicatesCategories(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEntryRepo(db)
	at := time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO entries (user_id, label, type, value, registered_at) VALUES (?,?,?,?,?)")).
		WithArgs(7, "Lunch", 0, 12.5, at).
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO entry_categories (entry_id, category_id) VALUES (?, ?),(?, ?)")).
		WithArgs(21, 3, 21, 5).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
	expectEntryReload(mock, 21, at, 3, 5)

	e := &model.Entry{UserID: 7, Label: "Lunch", Type: model.EntryExpense, Value: 12.5, RegisteredAt: at}
	require.NoError(t, repo.Create(context.Background(), e, []uint64{3, 5, 3, 5, 3}))
	assert.Equal(t, uint64(21), e.ID)
	assert.Len(t, e.Categories, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryCreateRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEntryRepo(db)
	at := time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)
	boom := errors.New("fk violation")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO entries")).
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO entry_categories")).
		WillReturnError(boom)
	mock.ExpectRollback()

	e := &model.Entry{UserID: 7, Label: "Lunch", RegisteredAt: at}
	err := repo.Create(context.Background(), e, []uint64{3})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryUpdateKeepsCategoriesWhenNil(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEntryRepo(db)
	at := time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE entries SET label=?, type=?, value=?, registered_at=? WHERE id=? AND user_id=?")).
		WithArgs("Lunch", 0, 12.5, at, 21, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectEntryReload(mock, 21, at, 3)

	e := &model.Entry{ID: 21, UserID: 7, Label: "Lunch", Value: 12.5, RegisteredAt: at}
	require.NoError(t, repo.Update(context.Background(), e, nil))
	assert.Len(t, e.Categories, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryUpdateReplacesCategories(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEntryRepo(db)
	at := time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE entries SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM entry_categories WHERE entry_id=?")).
		WithArgs(21).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectEntryReload(mock, 21, at)

	e := &model.Entry{ID: 21, UserID: 7, Label: "Lunch", Value: 12.5, RegisteredAt: at}
	require.NoError(t, repo.Update(context.Background(), e, []uint64{}))
	assert.Empty(t, e.Categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryDeleteKeepsCategories(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEntryRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM entry_categories WHERE entry_id=?")).
		WithArgs(21).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM entries WHERE id=? AND user_id=?")).
		WithArgs(21, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 7, 21))
	// No statement touches the categories table.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryListBetween(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEntryRepo(db)
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 30, 23, 59, 59, 0, time.UTC)
	at := time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM entries WHERE user_id=? AND registered_at BETWEEN ? AND ?")).
		WithArgs(7, start, end).
		WillReturnRows(sqlmock.NewRows(entryCols).
			AddRow(2, 7, "Salary", 1, 1000.0, at, at, at).
			AddRow(1, 7, "Lunch", 0, 12.5, at, at, at))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE ec.entry_id IN (?,?)")).
		WithArgs(2, 1).
		WillReturnRows(sqlmock.NewRows([]string{"entry_id", "id", "user_id", "label", "color", "created_at", "updated_at"}).
			AddRow(1, 3, 7, "Food", "#00ff00", at, at))

	out, err := repo.ListBetween(context.Background(), 7, start, end)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Empty(t, out[0].Categories)
	require.Len(t, out[1].Categories, 1)
	assert.Equal(t, "Food", out[1].Categories[0].Label)
	assert.NoError(t, mock.ExpectationsWereMet())
}
