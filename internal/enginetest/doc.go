// Package enginetest provides a fake grammar engine for tests.
//
// Engine is an http.Handler usable with httptest. RunIfHelper lets a test
// binary re-execute itself as the engine server, so supervisor and client
// tests can launch a real child process without a java installation.
package enginetest
