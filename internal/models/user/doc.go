// Package user contains the implementation of interacting with the MongoDB users collection.
// These are the admin accounts for the web surface (rule administration and twawl triggers),
// not twitter users. Passwords are encrypted with bcrypt. BSON is used to interact with the database.
package user
