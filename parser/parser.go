// Package parser decodes advertising data into a map keyed by field kind.
package parser

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rigado/gattbrowser"
)

var ErrEmptyPdu = errors.New("nil/empty pdu")

// AD types [CSS v9, Part A, 1].
// https://www.bluetooth.com/specifications/assigned-numbers/generic-access-profile
const (
	TypeFlags       byte = 0x01
	TypeUUID16Inc   byte = 0x02
	TypeUUID16Comp  byte = 0x03
	TypeUUID32Inc   byte = 0x04
	TypeUUID32Comp  byte = 0x05
	TypeUUID128Inc  byte = 0x06
	TypeUUID128Comp byte = 0x07
	TypeNameShort   byte = 0x08
	TypeNameComp    byte = 0x09
	TypeTxPower     byte = 0x0a
	TypeSol16       byte = 0x14
	TypeSol128      byte = 0x15
	TypeSvcData16   byte = 0x16
	TypeSol32       byte = 0x1f
	TypeSvcData32   byte = 0x20
	TypeSvcData128  byte = 0x21
	TypeMfgData     byte = 0xff
)

// Keys of the map returned by Parse.
const (
	KeyFlags       = "flags"
	KeyServices    = "services"
	KeySolicited   = "solicited"
	KeyServiceData = "serviceData"
	KeyLocalName   = "localName"
	KeyTxPower     = "txPower"
	KeyMfgData     = "mfg"
)

type pduRecord struct {
	arrayElementSz int
	minSz          int
	svcDataUUIDSz  int
	key            string
}

var pduDecodeMap = map[byte]pduRecord{
	TypeUUID16Inc:   {arrayElementSz: 2, minSz: 2, key: KeyServices},
	TypeUUID16Comp:  {arrayElementSz: 2, minSz: 2, key: KeyServices},
	TypeUUID32Inc:   {arrayElementSz: 4, minSz: 4, key: KeyServices},
	TypeUUID32Comp:  {arrayElementSz: 4, minSz: 4, key: KeyServices},
	TypeUUID128Inc:  {arrayElementSz: 16, minSz: 16, key: KeyServices},
	TypeUUID128Comp: {arrayElementSz: 16, minSz: 16, key: KeyServices},
	TypeSol16:       {arrayElementSz: 2, minSz: 2, key: KeySolicited},
	TypeSol32:       {arrayElementSz: 4, minSz: 4, key: KeySolicited},
	TypeSol128:      {arrayElementSz: 16, minSz: 16, key: KeySolicited},
	TypeSvcData16:   {minSz: 2, svcDataUUIDSz: 2, key: KeyServiceData},
	TypeSvcData32:   {minSz: 4, svcDataUUIDSz: 4, key: KeyServiceData},
	TypeSvcData128:  {minSz: 16, svcDataUUIDSz: 16, key: KeyServiceData},
	TypeNameComp:    {minSz: 1, key: KeyLocalName},
	TypeNameShort:   {minSz: 1, key: KeyLocalName},
	TypeTxPower:     {minSz: 1, key: KeyTxPower},
	TypeMfgData:     {minSz: 1, key: KeyMfgData},
	TypeFlags:       {minSz: 1, key: KeyFlags},
}

func getArray(size int, b []byte) ([]gattbrowser.UUID, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid size")
	}

	if len(b) == 0 {
		return nil, fmt.Errorf("nil/empty bytes")
	}

	count := len(b) / size
	rem := len(b) % size
	if rem != 0 || count == 0 {
		return nil, fmt.Errorf("incorrect size")
	}

	arr := make([]gattbrowser.UUID, 0, count)
	for j := 0; j < len(b); j += size {
		u, err := gattbrowser.UUIDFromBytes(b[j:(j + size)])
		if err != nil {
			return nil, err
		}
		arr = append(arr, u)
	}

	return arr, nil
}

// Parse decodes the AD structures in pdu. UUID lists decode to
// []gattbrowser.UUID, service data to map[string][][]byte keyed by UUID
// string, everything else to []byte. On error the fields decoded so far are
// returned along with it.
func Parse(pdu []byte) (map[string]interface{}, error) {
	if len(pdu) == 0 {
		return nil, ErrEmptyPdu
	}

	m := make(map[string]interface{})
	for i := 0; (i + 1) < len(pdu); {
		// length @ offset 0, type @ offset 1, data @ 2..length
		length := int(pdu[i])
		typ := pdu[i+1]

		// a zero length terminates the significant part
		if length < 1 {
			return m, fmt.Errorf("invalid record length %v, idx %v", length, i)
		}

		if (i + length) >= len(pdu) {
			return m, fmt.Errorf("buffer overflow: want %v, have %v, idx %v", i+length, len(pdu), i)
		}

		start := i + 2
		end := start + length - 1
		b := make([]byte, end-start)
		copy(b, pdu[start:end])

		dec, ok := pduDecodeMap[typ]
		if ok && len(b) != 0 {
			if dec.minSz > len(b) {
				return m, fmt.Errorf("adv type %v: min length %v, have %v, idx %v", typ, dec.minSz, len(b), i)
			}

			switch {
			case dec.arrayElementSz > 0:
				arr, err := getArray(dec.arrayElementSz, b)
				if err != nil {
					return m, errors.Wrapf(err, "adv type %v, idx %v", typ, i)
				}
				v, _ := m[dec.key].([]gattbrowser.UUID)
				m[dec.key] = append(v, arr...)

			case dec.svcDataUUIDSz > 0:
				u, err := gattbrowser.UUIDFromBytes(b[:dec.svcDataUUIDSz])
				if err != nil {
					return m, errors.Wrapf(err, "adv type %v, idx %v", typ, i)
				}
				msd, ok := m[dec.key].(map[string][][]byte)
				if !ok {
					msd = make(map[string][][]byte)
				}
				msd[u.String()] = append(msd[u.String()], b[dec.svcDataUUIDSz:])
				m[dec.key] = msd

			default:
				writeOrAppendBytes(m, dec.key, b)
			}
		}

		i += length + 1
	}

	return m, nil
}

func writeOrAppendBytes(m map[string]interface{}, key string, data []byte) {
	d, ok := m[key].([]byte)
	if !ok {
		m[key] = data
		return
	}

	switch key {
	case KeyMfgData:
		// the scan response repeats the company id
		if len(data) > 2 {
			m[key] = append(d, data[2:]...)
		}
	case KeyLocalName:
		// complete name wins over a shortened one seen earlier
		if len(data) >= len(d) {
			m[key] = data
		}
	default:
		m[key] = append(d, data...)
	}
}

// LocalName returns the advertised name in m, if any.
func LocalName(m map[string]interface{}) string {
	b, _ := m[KeyLocalName].([]byte)
	return string(b)
}
