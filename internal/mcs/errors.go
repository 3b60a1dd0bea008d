package mcs

import "errors"

var (
	// ErrChannelNotFound is returned when a channel name has no entry in the
	// session's channel ID map.
	ErrChannelNotFound = errors.New("channel not found")
	// ErrUnknownConnectApplication is returned when a Connect-PDU's
	// application tag is not one this client parses.
	ErrUnknownConnectApplication = errors.New("unknown connect application")
	// ErrUnknownDomainApplication is returned when a Domain-PDU's
	// application choice is not one this client parses.
	ErrUnknownDomainApplication = errors.New("unknown domain application")
	// ErrUnknownChannel is returned when a server PDU references a channel
	// ID this client did not request.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrDisconnectUltimatum is returned when the server sends a
	// Disconnect-Provider-Ultimatum in place of the expected PDU.
	ErrDisconnectUltimatum = errors.New("disconnect ultimatum")
	// ErrMCSConnectRefused is returned when a Connect-Response carries a
	// non-successful Result.
	ErrMCSConnectRefused = errors.New("mcs connect refused")
	// ErrAttachUserRefused is returned when an Attach-User-Confirm carries a
	// non-successful Result.
	ErrAttachUserRefused = errors.New("attach user refused")
	// ErrChannelJoinRefused is returned when a Channel-Join-Confirm carries
	// a non-successful Result.
	ErrChannelJoinRefused = errors.New("channel join refused")
)
