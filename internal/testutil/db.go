// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"prompt-storefront/internal/client"
	"prompt-storefront/internal/config"
)

var dbSeq atomic.Int64

// NewDB opens a migrated in-memory SQLite database private to the test.
// The pool holds a single connection, so code under test must not use the
// root handle while a transaction is open.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := client.InitDBClient(&config.Database{
		Driver:          "sqlite",
		URL:             fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1)),
		MaxIdleConns:    1,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Hour,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.CloseDBClient(db)
	})

	return db
}

const EncryptionKey = "0123456789abcdef0123456789abcdef"
