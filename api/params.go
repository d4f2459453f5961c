////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package api

import "time"

const (
	defaultRequestTimeout    = 15 * time.Second
	defaultRequestsPerSecond = 10
)

// Params configures a Client.
type Params struct {
	// BaseURL is the root of the platform REST API, e.g.
	// "https://platform.example.com".
	BaseURL string

	// AuthToken is the bearer token attached to every request.
	AuthToken string

	// RequestTimeout bounds each individual HTTP request.
	RequestTimeout time.Duration

	// RequestsPerSecond caps the outbound request rate. Requests past the
	// cap block until the limiter releases them.
	RequestsPerSecond int
}

// GetDefaultParams returns a Params with the default timeout and rate cap.
// BaseURL and AuthToken must still be filled in.
func GetDefaultParams() Params {
	return Params{
		RequestTimeout:    defaultRequestTimeout,
		RequestsPerSecond: defaultRequestsPerSecond,
	}
}
