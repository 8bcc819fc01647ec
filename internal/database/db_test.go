package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	dsn := Options{User: "app", Password: "pw", Host: "db", Port: "3306", Name: "cocktails"}.DSN()
	assert.Contains(t, dsn, "app:pw@tcp(db:3306)/cocktails")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestIsDuplicate(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	assert.True(t, IsDuplicate(dup))
	assert.True(t, IsDuplicate(fmt.Errorf("insert: %w", dup)))
	assert.False(t, IsDuplicate(&mysql.MySQLError{Number: 1045}))
	assert.False(t, IsDuplicate(errors.New("1062 lookalike")))
	assert.False(t, IsDuplicate(nil))
}
