// Package user contains the implementation of interacting with the MongoDB users collection.
// The UserManager struct is CRUD for the users collection. The User struct is the stored document, View the password-free snapshot.
// Interaction is by ID, except for the username lookups used to detect duplicates. BSON is used to interact with the database.
package user
