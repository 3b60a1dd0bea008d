package gcc

import (
	"errors"
	"io"

	"github.com/ravibrenner/godrp/internal/per"
)

type ConferenceCreateResponse struct{}

func (r *ConferenceCreateResponse) Deserialize(wire io.Reader) error {
	_, err := per.PerReadChoice(wire)
	if err != nil {
		return err
	}

	var objectIdentifier bool

	objectIdentifier, err = per.PerReadObjectIdentifier(t124_02_98_oid, wire)
	if err != nil {
		return err
	}

	if !objectIdentifier {
		return errors.New("bad object identifier t124")
	}

	_, err = per.PerReadLength(wire)
	if err != nil {
		return err
	}

	_, err = per.PerReadChoice(wire)
	if err != nil {
		return err
	}

	_, err = per.PerReadInteger16(1001, wire)
	if err != nil {
		return err
	}

	_, err = per.PerReadInteger(wire)
	if err != nil {
		return err
	}

	_, err = per.PerReadEnumerates(wire)
	if err != nil {
		return err
	}

	_, err = per.PerReadNumberOfSet(wire)
	if err != nil {
		return err
	}

	_, err = per.PerReadChoice(wire)
	if err != nil {
		return err
	}

	var octetStream bool

	octetStream, err = per.PerReadOctetStream([]byte(h221SCKey), 4, wire)
	if err != nil {
		return err
	}

	if !octetStream {
		return errors.New("bad H221 SC_KEY")
	}

	_, err = per.PerReadLength(wire)
	if err != nil {
		return err
	}

	return nil
}
