package mcs

import (
	"bytes"
	"io"

	"github.com/ravibrenner/godrp/internal/per"
)

const (
	RTSuccessful uint8 = iota
	RTDomainMerging
	RTDomainNotHierarchical
	RTNoSuchChannel
	RTNoSuchDomain
	RTNoSuchUser
	RTNotAdmitted
	RTOtherUserId
	RTParametersUnacceptable
	RTTokenNotAvailable
	RTTokenNotPossessed
	RTTooManyChannels
	RTTooManyTokens
	RTTooManyUsers
	RTUnspecifiedFailure
	RTUserRejected
)

const (
	RNDomainDisconnected uint8 = iota
	RNProviderInitiated
	RNTokenPurged
	RNUserRequested
	RNChannelPurged
)

type domainParameters struct {
	maxChannelIds   int
	maxUserIds      int
	maxTokenIds     int
	numPriorities   int
	minThroughput   int
	maxHeight       int
	maxMCSPDUsize   int
	protocolVersion int
}

func (params *domainParameters) Serialize() []byte {
	buf := new(bytes.Buffer)

	per.BerWriteInteger(params.maxChannelIds, buf)
	per.BerWriteInteger(params.maxUserIds, buf)
	per.BerWriteInteger(params.maxTokenIds, buf)
	per.BerWriteInteger(params.numPriorities, buf)
	per.BerWriteInteger(params.minThroughput, buf)
	per.BerWriteInteger(params.maxHeight, buf)
	per.BerWriteInteger(params.maxMCSPDUsize, buf)
	per.BerWriteInteger(params.protocolVersion, buf)

	return buf.Bytes()
}

func (params *domainParameters) Deserialize(wire io.Reader) error {
	var err error

	params.maxChannelIds, err = per.BerReadInteger(wire)
	if err != nil {
		return err
	}

	params.maxUserIds, err = per.BerReadInteger(wire)
	if err != nil {
		return err
	}

	params.maxTokenIds, err = per.BerReadInteger(wire)
	if err != nil {
		return err
	}

	params.numPriorities, err = per.BerReadInteger(wire)
	if err != nil {
		return err
	}

	params.minThroughput, err = per.BerReadInteger(wire)
	if err != nil {
		return err
	}

	params.maxHeight, err = per.BerReadInteger(wire)
	if err != nil {
		return err
	}

	params.maxMCSPDUsize, err = per.BerReadInteger(wire)
	if err != nil {
		return err
	}

	params.protocolVersion, err = per.BerReadInteger(wire)
	if err != nil {
		return err
	}

	return nil
}
