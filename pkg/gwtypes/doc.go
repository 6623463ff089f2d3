// Package gwtypes defines the shared data model for the gateway: chat
// messages and content blocks shared by both downstream dialects, the
// upstream conversation payload shape, decoded event-stream events, and
// the credential/token records that flow between the auth and pooling
// layers.
package gwtypes
