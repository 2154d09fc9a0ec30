package testutil

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNewMockDB(t *testing.T) {
	mockDB := NewMockDB(t)

	assert.NotNil(t, mockDB.DB)
	assert.NotNil(t, mockDB.Mock)
	mockDB.ExpectationsWereMet(t)
}

func TestNewSQLiteDB(t *testing.T) {
	db := NewSQLiteDB(t)

	for _, table := range []string{"bills", "transactions", "purchase_bills", "inventory_stocks", "p2p_invoices", "audit_entries"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestFixtures(t *testing.T) {
	scope, _ := NewScope(t)
	f := NewFixtures(t, scope, TestTenantID())

	bill := f.Bill("250.00")
	assert.Equal(t, TestTenantID(), bill.TenantID)
	assert.Equal(t, "1", bill.Version.String())

	other := f.Bill("10.00")
	assert.NotEqual(t, bill.BillNumber, other.BillNumber)
}

func TestNewTestContext(t *testing.T) {
	tc := NewTestContext(t)

	assert.NotNil(t, tc.Context)
	assert.NotNil(t, tc.Recorder)
	assert.Equal(t, http.MethodGet, tc.Context.Request.Method)
}

func TestNewTestUUID(t *testing.T) {
	assert.Equal(t, NewTestUUID("a"), NewTestUUID("a"))
	assert.NotEqual(t, NewTestUUID("a"), NewTestUUID("b"))
	assert.NotEqual(t, TestTenantID(), TestUserID())
}

func TestWaitForCondition(t *testing.T) {
	calls := 0
	ok := WaitForCondition(t, func() bool {
		calls++
		return calls >= 3
	}, time.Second, time.Millisecond)
	assert.True(t, ok)

	assert.False(t, WaitForCondition(t, func() bool { return false }, 10*time.Millisecond, time.Millisecond))
}

func TestRunHTTPTestCases(t *testing.T) {
	handler := func(c *gin.Context) {
		var body map[string]string
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": gin.H{"code": "INVALID_JSON"}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": body["name"]})
	}

	RunHTTPTestCases(t, handler, []HTTPTestCase{
		{
			Name:           "echoes the body",
			Method:         http.MethodPost,
			Body:           map[string]string{"name": "acme"},
			ExpectedStatus: http.StatusOK,
			Validate: func(t *testing.T, tc *TestContext) {
				env := DecodeEnvelope(t, tc)
				assert.True(t, env.Success)
				assert.Equal(t, "acme", env.Data)
			},
		},
		{
			Name:           "rejects a missing body",
			Method:         http.MethodPost,
			ExpectedStatus: http.StatusBadRequest,
			ExpectedCode:   "INVALID_JSON",
		},
	})
}
