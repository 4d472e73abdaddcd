package user

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// User represents a user document, including the password hash. It is the write model: fetched by ID, mutated, and saved back.
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Username string             `bson:"username" json:"username"`
	Password string             `bson:"password" json:"-"`
	Roles    []string           `bson:"roles" json:"roles"`
	Active   bool               `bson:"active" json:"active"`
}

// View is the read model of a user. It never carries the password.
type View struct {
	ID       primitive.ObjectID `bson:"_id" json:"_id"`
	Username string             `bson:"username" json:"username"`
	Roles    []string           `bson:"roles" json:"roles"`
	Active   bool               `bson:"active" json:"active"`
}

// View returns the read model of u.
func (u *User) View() View {
	roles := make([]string, len(u.Roles))
	copy(roles, u.Roles)
	return View{
		ID:       u.ID,
		Username: u.Username,
		Roles:    roles,
		Active:   u.Active,
	}
}

// SetPassword sets a new password for the user. Hashes the password using bcrypt with the given cost.
func (u *User) SetPassword(password string, cost int) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the provided password is correct.
// Returns nil on success, or error on failure
func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
}
