package sim

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rigado/gattbrowser"
	"github.com/rigado/gattbrowser/adv"
	"gopkg.in/yaml.v3"
)

// ErrUnknownPeer is returned for an address no fixture peripheral has.
var ErrUnknownPeer = errors.New("unknown peer")

// Fixture describes the peripherals in radio range of the simulated
// controller, in the order they advertise.
type Fixture struct {
	Peripherals []Peripheral `yaml:"peripherals" json:"peripherals"`
}

// Peripheral is one simulated device and its attribute table.
type Peripheral struct {
	Address string `yaml:"address" json:"address"`
	Random  bool   `yaml:"random" json:"random"`
	Name    string `yaml:"name" json:"name"`
	RSSI    int8   `yaml:"rssi" json:"rssi"`

	// Adverts is how many reports the peripheral produces per scan; at
	// least one.
	Adverts int `yaml:"adverts" json:"adverts"`

	TxPower      *int8         `yaml:"txPower" json:"txPower"`
	Manufacturer *Manufacturer `yaml:"manufacturer" json:"manufacturer"`

	Services []Service `yaml:"services" json:"services"`

	// Faults
	ConnectStatus uint8 `yaml:"connectStatus" json:"connectStatus"`
	ServiceStatus uint8 `yaml:"serviceStatus" json:"serviceStatus"`

	// DropAfter, when positive, is the number of discovery queries answered
	// before the link is lost with a supervision timeout.
	DropAfter int `yaml:"dropAfter" json:"dropAfter"`
}

// Manufacturer is the manufacturer specific data a peripheral advertises.
// Data is hex encoded.
type Manufacturer struct {
	ID   uint16 `yaml:"id" json:"id"`
	Data string `yaml:"data" json:"data"`
}

// Service is a primary service of a fixture peripheral.
type Service struct {
	UUID            string           `yaml:"uuid" json:"uuid"`
	Characteristics []Characteristic `yaml:"characteristics" json:"characteristics"`

	// Status is the ATT error that ends characteristic discovery for this
	// service, if any.
	Status uint8 `yaml:"status" json:"status"`
}

// Characteristic is declared with its properties as flag letters, e.g. "RN".
type Characteristic struct {
	UUID       string `yaml:"uuid" json:"uuid"`
	Properties string `yaml:"properties" json:"properties"`
}

// Load reads a fixture from path, as JSON if the file name ends in .json and
// as YAML otherwise.
func Load(path string) (*Fixture, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read fixture")
	}

	f := &Fixture{}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(b, f)
	} else {
		err = yaml.Unmarshal(b, f)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode fixture %s", path)
	}
	return f, nil
}

// maxAdvUUIDs leaves room in the advertisement for flags and a short name.
const maxAdvUUIDs = 8

// device is a peripheral with its attribute table laid out.
type device struct {
	addr     gattbrowser.Addr
	name     string
	rssi     int8
	adverts  int
	advData  []byte
	services []gattbrowser.Service
	chars    map[uint16][]gattbrowser.Characteristic // by service start handle
	status   map[uint16]uint8

	connectStatus uint8
	serviceStatus uint8
	dropAfter     int
}

func (f *Fixture) devices() ([]*device, error) {
	dd := make([]*device, 0, len(f.Peripherals))
	for i := range f.Peripherals {
		d, err := f.Peripherals[i].device()
		if err != nil {
			return nil, errors.Wrapf(err, "peripheral %d", i)
		}
		dd = append(dd, d)
	}
	return dd, nil
}

// device assigns attribute handles from 0x0001 up, in declaration order: the
// service declaration, then per characteristic its declaration, its value
// and, for notify or indicate, a client configuration descriptor.
func (p *Peripheral) device() (*device, error) {
	a, err := gattbrowser.ParseAddr(p.Address)
	if err != nil {
		return nil, err
	}
	if p.Random {
		a = a.WithType(gattbrowser.AddrRandom)
	}

	d := &device{
		addr:          a,
		name:          p.Name,
		rssi:          p.RSSI,
		adverts:       p.Adverts,
		chars:         make(map[uint16][]gattbrowser.Characteristic),
		status:        make(map[uint16]uint8),
		connectStatus: p.ConnectStatus,
		serviceStatus: p.ServiceStatus,
		dropAfter:     p.DropAfter,
	}
	if d.adverts < 1 {
		d.adverts = 1
	}

	h := uint16(0x0001)
	var short []gattbrowser.UUID
	for i, s := range p.Services {
		su, err := gattbrowser.ParseUUID(s.UUID)
		if err != nil {
			return nil, errors.Wrapf(err, "service %d", i)
		}
		if su.IsShort() {
			short = append(short, su)
		}

		svc := gattbrowser.Service{StartHandle: h, UUID: su}
		var cc []gattbrowser.Characteristic
		for j, c := range s.Characteristics {
			cu, err := gattbrowser.ParseUUID(c.UUID)
			if err != nil {
				return nil, errors.Wrapf(err, "service %d, characteristic %d", i, j)
			}
			props, err := gattbrowser.ParseProperty(c.Properties)
			if err != nil {
				return nil, errors.Wrapf(err, "service %d, characteristic %d", i, j)
			}

			ch := gattbrowser.Characteristic{
				DeclarationHandle: h + 1,
				ValueHandle:       h + 2,
				Properties:        props,
				UUID:              cu,
			}
			h += 2
			if props&(gattbrowser.CharNotify|gattbrowser.CharIndicate) != 0 {
				h++
			}
			ch.EndHandle = h
			cc = append(cc, ch)
		}

		svc.EndHandle = h
		d.services = append(d.services, svc)
		d.chars[svc.StartHandle] = cc
		d.status[svc.StartHandle] = s.Status
		h++
	}

	fields := []adv.Field{adv.Flags(adv.FlagGeneralDiscoverable | adv.FlagLEOnly)}
	if p.TxPower != nil {
		fields = append(fields, adv.TxPower(*p.TxPower))
	}
	switch {
	case len(short) > maxAdvUUIDs:
		fields = append(fields, adv.SomeUUID(short[:maxAdvUUIDs]...))
	case len(short) > 0:
		fields = append(fields, adv.AllUUID(short...))
	}
	if m := p.Manufacturer; m != nil {
		b, err := hex.DecodeString(m.Data)
		if err != nil {
			return nil, errors.Wrap(err, "manufacturer data")
		}
		fields = append(fields, adv.ManufacturerData(m.ID, b))
	}
	pkt, err := adv.NewPacket(fields...)
	if err != nil {
		return nil, errors.Wrap(err, "advertising data")
	}
	if d.name != "" {
		// a name that does not fit at all is left out
		if err := pkt.Append(adv.Name(d.name)); err != nil && err != adv.ErrNotFit {
			return nil, err
		}
	}
	d.advData = pkt.Bytes()
	return d, nil
}
