// Package log contains the Logger used by the entire service. The Logger is a wrapper around zap.SugaredLogger.
// There should be a single instance of the Logger in the service, and it should be injected into any structs that need to log.
package log
