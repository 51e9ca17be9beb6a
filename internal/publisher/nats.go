package publisher

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"ridesim/internal/sim"
)

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
}

type NATSPublisher struct {
	nc          *nats.Conn
	out         conn
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
	log         zerolog.Logger
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, prefix string, logSubjects bool, m PublisherMetrics, log zerolog.Logger) (*NATSPublisher, error) {
	log = log.With().Str("component", "nats").Logger()
	nc, err := nats.Connect(url,
		nats.Name("ridesim"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Info().Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Info().Msg("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	p := newPublisher(nc, prefix, logSubjects, m, log)
	p.nc = nc
	return p, nil
}

func newPublisher(out conn, prefix string, logSubjects bool, m PublisherMetrics, log zerolog.Logger) *NATSPublisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "park"
	}
	return &NATSPublisher{out: out, prefix: prefix, logSubjects: logSubjects, metrics: m, log: log}
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// EventMessage is the wire form of a ride event.
type EventMessage struct {
	Tick    uint64   `json:"tick"`
	Kind    string   `json:"kind"`
	Ride    int32    `json:"ride"`
	Train   int32    `json:"train"`
	Other   *int32   `json:"other,omitempty"`
	Station *int     `json:"station,omitempty"`
	Before  [2]int32 `json:"before"`
	After   [2]int32 `json:"after"`
	Detail  string   `json:"detail,omitempty"`
}

// PositionMessage is one train's committed pose at a tick.
type PositionMessage struct {
	Tick         uint64       `json:"tick"`
	Timestamp    time.Time    `json:"timestamp"`
	Ride         int32        `json:"ride"`
	Train        int32        `json:"train"`
	Status       string       `json:"status"`
	Velocity     float64      `json:"velocity"`
	CircuitsLeft int          `json:"circuitsLeft"`
	Cars         []CarMessage `json:"cars"`
}

type CarMessage struct {
	Index    int   `json:"index"`
	Segment  int32 `json:"segment"`
	Progress int   `json:"progress"`
	X        int32 `json:"x"`
	Y        int32 `json:"y"`
	Z        int32 `json:"z"`
	Yaw      uint8 `json:"yaw"`
	Pitch    uint8 `json:"pitch"`
	Bank     uint8 `json:"bank"`
	Sprite   uint8 `json:"sprite"`
}

func eventMessage(ev sim.Event) EventMessage {
	msg := EventMessage{
		Tick:   ev.Tick,
		Kind:   ev.Kind.String(),
		Ride:   int32(ev.Ride),
		Train:  ev.Train,
		Detail: ev.Detail,
	}
	if ev.Other >= 0 {
		other := ev.Other
		msg.Other = &other
		msg.Before = ev.Before
		msg.After = ev.After
	}
	if ev.Station >= 0 {
		st := ev.Station
		msg.Station = &st
	}
	return msg
}

// PublishEvent sends ev on <prefix>.events.<ride>.<kind>.
func (p *NATSPublisher) PublishEvent(ev sim.Event) error {
	subject := p.subject("events", strconv.Itoa(int(ev.Ride)), ev.Kind.String())
	return p.publish(subject, eventMessage(ev))
}

// PublishPositions sends a train's cars on <prefix>.positions.<ride>.<train>.
func (p *NATSPublisher) PublishPositions(tick uint64, train sim.TrainView, cars []sim.CarPosition) error {
	msg := PositionMessage{
		Tick:         tick,
		Timestamp:    time.Now().UTC(),
		Ride:         int32(train.Ride),
		Train:        train.ID,
		Status:       train.Status.String(),
		Velocity:     float64(train.Velocity) / 65536,
		CircuitsLeft: train.CircuitsLeft,
		Cars:         make([]CarMessage, 0, len(cars)),
	}
	for _, c := range cars {
		msg.Cars = append(msg.Cars, CarMessage{
			Index:    c.Index,
			Segment:  int32(c.Segment),
			Progress: c.Progress,
			X:        c.Pos.X,
			Y:        c.Pos.Y,
			Z:        c.Pos.Z,
			Yaw:      c.Yaw,
			Pitch:    uint8(c.Pitch),
			Bank:     uint8(c.Bank),
			Sprite:   c.Sprite,
		})
	}
	subject := p.subject("positions", strconv.Itoa(int(train.Ride)), strconv.Itoa(int(train.ID)))
	return p.publish(subject, msg)
}

func (p *NATSPublisher) subject(tokens ...string) string {
	parts := make([]string, 0, len(tokens)+1)
	parts = append(parts, p.prefix)
	for _, t := range tokens {
		parts = append(parts, subjectToken(t))
	}
	return strings.Join(parts, ".")
}

func (p *NATSPublisher) publish(subject string, msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if p.logSubjects {
		p.log.Debug().Str("subject", subject).Msg("nats publish")
	}
	start := time.Now()
	err = p.out.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
