package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func TestSetPassword(t *testing.T) {
	u := &User{}
	require.NoError(t, u.SetPassword("s3cret", bcrypt.MinCost))

	assert.NotEqual(t, "s3cret", u.Password)
	cost, err := bcrypt.Cost([]byte(u.Password))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	assert.NoError(t, u.CheckPassword("s3cret"))
	assert.Error(t, u.CheckPassword("wrong"))
}

func TestSetPassword_DefaultCost(t *testing.T) {
	u := &User{}
	require.NoError(t, u.SetPassword("s3cret", bcrypt.DefaultCost))

	cost, err := bcrypt.Cost([]byte(u.Password))
	require.NoError(t, err)
	assert.Equal(t, 10, cost)
}

func TestView_CopiesRoles(t *testing.T) {
	u := &User{ID: primitive.NewObjectID(), Username: "dave", Password: "hash", Roles: []string{"Employee"}, Active: true}

	v := u.View()
	v.Roles[0] = "Admin"

	assert.Equal(t, "Employee", u.Roles[0])
	assert.Equal(t, u.ID, v.ID)
	assert.Equal(t, "dave", v.Username)
}
