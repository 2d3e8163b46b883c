package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestBaseTxRebinds(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	base := NewBase(conn)
	require.Same(t, conn, base.DB(nil))
	require.NotNil(t, base.DB(context.Background()))

	require.Same(t, conn, base.Tx(nil).DB(nil))

	tx := conn.Begin()
	defer tx.Rollback()
	require.Same(t, tx, base.Tx(tx).DB(nil))
}

type widget struct {
	ID   int
	Name string
}

func TestFirstOrNil(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&widget{}))
	require.NoError(t, conn.Create(&widget{Name: "bolt"}).Error)

	got, err := FirstOrNil[widget](conn.Where("name = ?", "bolt"))
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "bolt", got.Name)

	missing, err := FirstOrNil[widget](conn.Where("name = ?", "nut"))
	require.NoError(t, err)
	require.Nil(t, missing)
}
