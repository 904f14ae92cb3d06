// Package bridge answers check requests arriving over MQTT.
//
// A request is a JSON object published on langcheck/check/request:
//
//	{"id": "42", "text": "Teh cat", "language": "en-US", "mode": "correct"}
//
// id is optional; one is generated when missing. mode is "check" (the
// default) or "correct". The reply goes to langcheck/check/result/{id} and
// carries the matches, the correction status and, in correct mode, the
// corrected text. Failures are answered with an error code instead of
// being dropped, so a caller waiting on its result topic always hears back.
//
// Requests are handled concurrently up to a fixed limit; further requests
// wait for a free slot.
package bridge
