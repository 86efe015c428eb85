package seed

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	insertSQL = regexp.QuoteMeta(`INSERT INTO products`)
	countSQL  = regexp.QuoteMeta(`SELECT category, COUNT(*)`)
)

func TestCatalog(t *testing.T) {
	entries, err := Catalog()
	require.NoError(t, err)
	require.Len(t, entries, 26)

	// Two handbags share a name; each listing still has its own picture
	type listing struct{ name, image string }
	listings := make(map[listing]struct{}, len(entries))
	for _, e := range entries {
		assert.NotEmpty(t, e.Name)
		assert.NotEmpty(t, e.Image, e.Name)
		assert.True(t, e.Price.IsPositive(), "%s has price %s", e.Name, e.Price)
		assert.True(t, domain.Category(e.Category).Valid(), "%s has category %q", e.Name, e.Category)
		listings[listing{e.Name, e.Image}] = struct{}{}
	}
	assert.Len(t, listings, len(entries), "name and image pairs are unique")
}

func TestEntry_Input(t *testing.T) {
	entries, err := Catalog()
	require.NoError(t, err)

	// The first entry has no original price or discount
	plain := entries[0].Input()
	assert.False(t, plain.OriginalPrice.Valid)
	assert.Nil(t, plain.DiscountPercent)
	require.NotNil(t, plain.Description)

	discounted := entries[1].Input()
	require.True(t, discounted.OriginalPrice.Valid)
	assert.Equal(t, "669000", discounted.OriginalPrice.Decimal.String())
	require.NotNil(t, discounted.DiscountPercent)
	assert.Equal(t, 25, *discounted.DiscountPercent)
}

func TestRun(t *testing.T) {
	entries, err := Catalog()
	require.NoError(t, err)
	entries = entries[:3]

	t.Run("Reset then insert in one transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM products`)).WillReturnResult(sqlmock.NewResult(0, 12))
		for i := range entries {
			mock.ExpectQuery(insertSQL).
				WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(i+1), time.Now()))
		}
		mock.ExpectQuery(countSQL).
			WillReturnRows(sqlmock.NewRows([]string{"category", "count"}).AddRow("travel-backpack", 3))
		mock.ExpectCommit()

		result, err := Run(t.Context(), db, entries, Options{Reset: true}, zap.NewNop())

		require.NoError(t, err)
		assert.Equal(t, int64(12), result.Deleted)
		assert.Equal(t, 3, result.Inserted)
		require.Len(t, result.Distribution, len(domain.Categories()))
		for _, summary := range result.Distribution {
			if summary.Category == domain.CategoryTravelBackpack {
				assert.Equal(t, 3, summary.Count)
			} else {
				assert.Zero(t, summary.Count, summary.Category)
			}
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failed insert rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(insertSQL).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))
		mock.ExpectQuery(insertSQL).WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		result, err := Run(t.Context(), db, entries, Options{}, zap.NewNop())

		require.Error(t, err)
		assert.Nil(t, result)
		assert.Contains(t, err.Error(), entries[1].Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
