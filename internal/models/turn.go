package models

import "time"

// Turn is one stored request/response exchange between a user and the model.
type Turn struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Message   string    `bson:"message"`
	Response  string    `bson:"response"`
	Timestamp time.Time `bson:"timestamp"`
}
