package systems

import (
	"fmt"

	"github.com/san-kum/chaoskit/internal/dynamo"
)

// Kind is the closed set of simulated systems. Each kind binds its own
// derivative law and state-vector shape; there is no runtime type
// inspection on the hot path.
type Kind int

const (
	KindNBody Kind = iota
	KindDoublePendulum
	KindLorenz
	KindRossler
	KindWaterwheel
)

var kindNames = map[Kind]string{
	KindNBody:          "nbody",
	KindDoublePendulum: "double-pendulum",
	KindLorenz:         "lorenz",
	KindRossler:        "rossler",
	KindWaterwheel:     "waterwheel",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown system kind %q", s)
}

func Kinds() []Kind {
	return []Kind{KindNBody, KindDoublePendulum, KindLorenz, KindRossler, KindWaterwheel}
}

// System extends dynamo.System with what the engine and the export
// schema need from every concrete model.
type System interface {
	dynamo.System
	dynamo.Configurable
	Kind() Kind
	DefaultState() dynamo.State
}

// New constructs the default instance of a kind.
func New(k Kind) (System, error) {
	switch k {
	case KindNBody:
		return NewNBody(nil, DefaultBodies()), nil
	case KindDoublePendulum:
		return NewDoublePendulum(), nil
	case KindLorenz:
		return NewLorenz(), nil
	case KindRossler:
		return NewRossler(), nil
	case KindWaterwheel:
		return NewWaterwheel(), nil
	}
	return nil, fmt.Errorf("unknown system kind %d", int(k))
}
