// Package transport issues requests against the profile API.
//
// The client expands path templates, retries network failures and gateway
// errors with jittered exponential backoff, tags every attempt with an
// X-Request-ID, and reports each exchange to an optional Observer. It does
// not interpret response bodies; that is the decoder's job.
package transport
