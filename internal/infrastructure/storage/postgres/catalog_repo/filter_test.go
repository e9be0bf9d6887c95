package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo() *BaseCatalogRepo[any] {
	return NewBaseCatalogRepo[any]("test_table", []string{"id", "code", "name"}, func() any { return nil })
}

func TestParseOrderBy(t *testing.T) {
	repo := newTestRepo()

	tests := []struct {
		name    string
		orderBy string
		want    string
		wantErr bool
	}{
		{name: "default", orderBy: "", want: "name ASC"},
		{name: "plain field", orderBy: "code", want: "code ASC"},
		{name: "descending", orderBy: "-name", want: "name DESC"},
		{name: "explicit ascending", orderBy: "+code", want: "code ASC"},
		{name: "common column not in selectCols", orderBy: "created_at", want: "created_at ASC"},
		{name: "unknown column rejected", orderBy: "evil; DROP TABLE", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.parseOrderBy(tt.orderBy)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBaseSelect_SQL(t *testing.T) {
	repo := newTestRepo()

	sql, args, err := repo.baseSelect().ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, code, name FROM test_table", sql)
	assert.Empty(t, args)
}
