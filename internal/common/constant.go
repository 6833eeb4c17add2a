// Package common contains shared constants and sentinel errors used across
// gophrewards components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// BearerPrefix is the Authorization header scheme accepted by the REST API.
const BearerPrefix = "Bearer "

// RedemptionCodePrefix is the literal prefix of every redemption code.
const RedemptionCodePrefix = "RWD"
