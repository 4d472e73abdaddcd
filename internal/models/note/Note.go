// This file contains the Note struct. Notes are owned by the notes service; this service only reads them
// to find out whether a user still has notes assigned.
//
// bson tags give the field names in the database, json tags the field names in API payloads.

package note

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Note represents a note document assigned to a user
type Note struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Title     string             `bson:"title" json:"title"`
	Text      string             `bson:"text" json:"text"`
	Completed bool               `bson:"completed" json:"completed"`
	Ticket    int                `bson:"ticket,omitempty" json:"ticket,omitempty"`
	CreatedAt time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt time.Time          `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}
