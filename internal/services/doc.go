// Package services contains the implementation of all services used by the web server.
//
// The services are responsible for interacting with the database and performing anything that is not strictly HTTP-related.
// The services are injected into the web server, and are used to handle requests dispatched by it.
//
// Current services include:
//   - UserService:
//     Lists, creates, updates and deletes users. Expected failures are returned as *ServiceError values
//   - AMPQService:
//     Is a ampq 0.9.1 broker-agnostic publisher of user lifecycle events
package services
